package httpapi

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	authcore "github.com/raymandgroup/authcore"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
)

type contactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (f *contactForm) validate() string {
	if f.Name == "" || f.Email == "" || f.Phone == "" {
		return "All fields are required"
	}
	if !emailPattern.MatchString(f.Email) {
		return "Invalid email format"
	}
	if !phonePattern.MatchString(f.Phone) {
		return "Invalid phone number format"
	}
	return ""
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var form contactForm
	if !decodeJSON(w, r, &form) {
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)

	if msg := form.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: msg})
		return
	}

	data := map[string]string{
		"email":        form.Email,
		"phone":        form.Phone,
		"message":      form.Message,
		"submitted_at": time.Now().UTC().Format("02 Jan 2006 15:04 MST"),
	}

	// The owner copy is the one that matters; the acknowledgement to
	// the submitter is best effort.
	err := s.dispatcher.Send(r.Context(), authcore.Notification{
		Recipient:   form.Email,
		DisplayName: form.Name,
		Kind:        authcore.NotifyContactOwner,
		Data:        data,
	})
	if err != nil {
		s.logger.Error("contact dispatch failed", slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, msgResponse{Msg: "Failed to send email"})
		return
	}

	if err := s.dispatcher.Send(r.Context(), authcore.Notification{
		Recipient:   form.Email,
		DisplayName: form.Name,
		Kind:        authcore.NotifyContactAck,
		Data:        data,
	}); err != nil {
		s.logger.Warn("contact acknowledgement failed", slog.Any("err", err))
	}

	writeJSON(w, http.StatusOK, msgResponse{Msg: "Message received! Email sent"})
}

type cooperationForm struct {
	Personal struct {
		FullName     string `json:"fullName"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		Organization string `json:"organization"`
		Position     string `json:"position"`
		Specialty    string `json:"specialty"`
	} `json:"personal"`
	Education struct {
		Degree     string `json:"degree"`
		Field      string `json:"field"`
		University string `json:"university"`
		Year       string `json:"year"`
	} `json:"education"`
	ResearchAreas      string `json:"researchAreas"`
	ResearchExperience string `json:"researchExperience"`
	AdditionalInfo     string `json:"additionalInfo"`
}

func (s *Server) handleCooperation(w http.ResponseWriter, r *http.Request) {
	var form cooperationForm
	if !decodeJSON(w, r, &form) {
		return
	}
	form.Personal.FullName = strings.TrimSpace(form.Personal.FullName)
	form.Personal.Email = strings.TrimSpace(form.Personal.Email)

	if form.Personal.FullName == "" || form.Personal.Email == "" {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Full name and email are required"})
		return
	}
	if !emailPattern.MatchString(form.Personal.Email) {
		writeJSON(w, http.StatusBadRequest, msgResponse{Msg: "Invalid email format"})
		return
	}

	data := map[string]string{
		"full_name":           form.Personal.FullName,
		"email":               form.Personal.Email,
		"phone":               form.Personal.Phone,
		"organization":        form.Personal.Organization,
		"position":            form.Personal.Position,
		"specialty":           form.Personal.Specialty,
		"degree":              form.Education.Degree,
		"field":               form.Education.Field,
		"university":          form.Education.University,
		"year":                form.Education.Year,
		"research_areas":      form.ResearchAreas,
		"research_experience": form.ResearchExperience,
		"additional_info":     form.AdditionalInfo,
	}

	err := s.dispatcher.Send(r.Context(), authcore.Notification{
		Recipient:   form.Personal.Email,
		DisplayName: form.Personal.FullName,
		Kind:        authcore.NotifyCooperationAdmin,
		Data:        data,
	})
	if err != nil {
		s.logger.Error("cooperation dispatch failed", slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, msgResponse{Msg: "Failed to send email"})
		return
	}

	if err := s.dispatcher.Send(r.Context(), authcore.Notification{
		Recipient:   form.Personal.Email,
		DisplayName: form.Personal.FullName,
		Kind:        authcore.NotifyCooperationAck,
		Data:        data,
	}); err != nil {
		s.logger.Warn("cooperation acknowledgement failed", slog.Any("err", err))
	}

	writeJSON(w, http.StatusOK, msgResponse{Msg: "Cooperation request received"})
}
