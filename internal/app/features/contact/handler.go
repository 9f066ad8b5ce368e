// Package contact handles the public enquiry form and mails it to staff.
package contact

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	"github.com/vicarhk/vicarapi/internal/app/system/inputval"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/mailer"
	"github.com/vicarhk/vicarapi/internal/app/system/network"
	"go.uber.org/zap"
)

// MaxMessageLen is the longest accepted message, in characters.
const MaxMessageLen = 1000

// maxRepeat is the longest run of one character a message may contain.
const maxRepeat = 4

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)viagra`),
	regexp.MustCompile(`(?i)casino`),
	regexp.MustCompile(`(?i)loan`),
	regexp.MustCompile(`(?i)credit`),
	regexp.MustCompile(`(?i)buy.*now`),
	regexp.MustCompile(`(?i)free.*money`),
	regexp.MustCompile(`(?i)make.*money`),
	regexp.MustCompile(`(?i)earn.*money`),
	regexp.MustCompile(`(?i)click.*here`),
	regexp.MustCompile(`(?i)limited.*time`),
	regexp.MustCompile(`(?i)act.*now`),
}

// Handler handles contact form submissions.
type Handler struct {
	sender mailer.Sender
	to     []string
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a contact Handler that mails enquiries to the to addresses.
func NewHandler(sender mailer.Sender, to []string, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		sender: sender,
		to:     to,
		errLog: errLog,
		logger: logger,
		now:    time.Now,
	}
}

// enquiryInput uses the field names the site's form posts.
type enquiryInput struct {
	Name        string `json:"Name"`
	EmailAdd    string `json:"EmailAdd"`
	PhoneNo     string `json:"PhoneNo"`
	MessageBody string `json:"MessageBody"`
}

// Submit handles POST /contact-us-enquiry-form.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in enquiryInput
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
		jsonutil.BadRequest(w, "Invalid JSON", err.Error())
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.EmailAdd = strings.TrimSpace(in.EmailAdd)
	in.PhoneNo = strings.TrimSpace(in.PhoneNo)

	if errMsg, msg := check(in); errMsg != "" {
		h.logger.Info("contact form rejected",
			zap.String("reason", errMsg),
			zap.String("ip", network.GetClientIP(r)))
		jsonutil.BadRequest(w, errMsg, msg)
		return
	}

	subject, text, html := mailer.ContactEnquiryEmail(mailer.ContactEnquiryData{
		Name:        in.Name,
		Email:       in.EmailAdd,
		Phone:       in.PhoneNo,
		Message:     in.MessageBody,
		ClientIP:    network.GetClientIP(r),
		SubmittedAt: h.now(),
	})
	err := h.sender.Send(mailer.Email{
		To:       h.to,
		ReplyTo:  in.EmailAdd,
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		h.errLog.Log(r, "failed to send contact enquiry", err)
		jsonutil.Fail(w, http.StatusInternalServerError, "Failed to send email",
			"There was an error processing your request. Please try again later.")
		return
	}

	h.logger.Info("contact enquiry sent", zap.Int("recipients", len(h.to)))
	jsonutil.OK(w, "Contact form submitted successfully. We will get back to you soon!", nil)
}

// check applies the form rules in order and returns the first failure as
// (error, message), or empty strings when the enquiry is acceptable.
func check(in enquiryInput) (string, string) {
	if in.Name == "" || in.EmailAdd == "" || in.PhoneNo == "" || strings.TrimSpace(in.MessageBody) == "" {
		return "Missing required fields", "Name, EmailAdd, PhoneNo, and MessageBody are required"
	}

	combined := in.Name + " " + in.EmailAdd + " " + in.PhoneNo + " " + in.MessageBody
	for _, re := range spamPatterns {
		if re.MatchString(combined) {
			return "Suspicious content detected",
				"Your message contains content that appears to be spam. Please revise and try again."
		}
	}

	if !inputval.IsValidEmail(in.EmailAdd) {
		return "Invalid email format", "Please provide a valid email address"
	}

	if utf8.RuneCountInString(in.MessageBody) > MaxMessageLen {
		return "Message too long", "Message must be less than 1000 characters"
	}

	if longestRun(in.MessageBody) > maxRepeat {
		return "Invalid message content", "Message contains too many repeated characters"
	}

	return "", ""
}

// longestRun returns the length of the longest run of one repeated
// character. Line breaks never count as a run.
func longestRun(s string) int {
	best, run := 0, 0
	var prev rune = -1
	for _, c := range s {
		if c == '\n' || c == '\r' {
			prev, run = -1, 0
			continue
		}
		if c == prev {
			run++
		} else {
			prev, run = c, 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
