package courses

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
	"github.com/akademia-app/akademia/internal/view"
)

// Handler manages course and batch endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers course routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionRead, rbac.SubjectCourse))
		r.Get("/", h.listCourses)
		r.Get("/{courseID}", h.showCourse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionManage, rbac.SubjectCourse))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createCourse)
		r.Get("/{courseID}/edit", h.showEditForm)
		r.Post("/{courseID}", h.updateCourse)
		r.Post("/{courseID}/archive", h.archiveCourse)
		r.Post("/{courseID}/restore", h.restoreCourse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionManage, rbac.SubjectBatch))
		r.Post("/{courseID}/batches", h.scheduleBatch)
	})
}

type formErrors map[string]string

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCourses(r.Context())
	if err != nil {
		h.logger.Error("list courses", slog.Any("error", err))
		h.render(w, r, "pages/courses/list.html", "Kursus", map[string]any{
			"Errors": formErrors{"general": shared.UserSafeMessage(err)},
		}, http.StatusInternalServerError)
		return
	}
	identity := rbac.IdentityFromContext(r.Context())
	h.render(w, r, "pages/courses/list.html", "Kursus", map[string]any{
		"Courses":   list,
		"CanManage": rbac.HasPermission(identity, rbac.ActionManage, rbac.SubjectCourse),
	}, http.StatusOK)
}

func (h *Handler) showCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.courseID(w, r)
	if !ok {
		return
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("load course", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	identity := rbac.IdentityFromContext(r.Context())
	h.render(w, r, "pages/courses/detail.html", course.Name, map[string]any{
		"Course":           course,
		"CanManage":        rbac.HasPermission(identity, rbac.ActionManage, rbac.SubjectCourse),
		"CanManageBatches": rbac.HasPermission(identity, rbac.ActionManage, rbac.SubjectBatch),
	}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/courses/form.html", "Kursus Baru", map[string]any{
		"Form": CourseInput{},
	}, http.StatusOK)
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseCourseForm(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	if _, err := h.service.CreateCourse(r.Context(), input, actor); err != nil {
		h.handleCourseError(w, r, "Kursus Baru", input, err)
		return
	}
	h.redirectWithFlash(w, r, "/courses", "success", "Kursus berhasil dibuat")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.courseID(w, r)
	if !ok {
		return
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("load course", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/courses/form.html", "Ubah Kursus", map[string]any{
		"Course": course,
		"Form":   CourseInput{Code: course.Code, Name: course.Name, Description: course.Description},
	}, http.StatusOK)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.courseID(w, r)
	if !ok {
		return
	}
	input, ok := h.parseCourseForm(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	if _, err := h.service.UpdateCourse(r.Context(), id, input, actor); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.handleCourseError(w, r, "Ubah Kursus", input, err)
		return
	}
	h.redirectWithFlash(w, r, "/courses", "success", "Kursus berhasil diperbarui")
}

func (h *Handler) archiveCourse(w http.ResponseWriter, r *http.Request) {
	h.toggleArchive(w, r, false)
}

func (h *Handler) restoreCourse(w http.ResponseWriter, r *http.Request) {
	h.toggleArchive(w, r, true)
}

func (h *Handler) toggleArchive(w http.ResponseWriter, r *http.Request, restore bool) {
	id, ok := h.courseID(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	var err error
	if restore {
		err = h.service.RestoreCourse(r.Context(), id, actor)
	} else {
		err = h.service.ArchiveCourse(r.Context(), id, actor)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("toggle course", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/courses", "error", shared.UserSafeMessage(err))
		return
	}
	if restore {
		h.redirectWithFlash(w, r, "/courses", "success", "Kursus diaktifkan kembali")
		return
	}
	h.redirectWithFlash(w, r, "/courses", "success", "Kursus diarsipkan")
}

func (h *Handler) scheduleBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.courseID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	detail := "/courses/" + strconv.FormatInt(id, 10)
	input := BatchInput{
		CourseID: id,
		Code:     r.PostFormValue("code"),
		Name:     r.PostFormValue("name"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("starts_on")); raw != "" {
		startsOn, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.redirectWithFlash(w, r, detail, "error", "Tanggal mulai tidak valid")
			return
		}
		input.StartsOn = startsOn
	}
	if raw := strings.TrimSpace(r.PostFormValue("ends_on")); raw != "" {
		endsOn, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.redirectWithFlash(w, r, detail, "error", "Tanggal selesai tidak valid")
			return
		}
		input.EndsOn = &endsOn
	}
	if raw := strings.TrimSpace(r.PostFormValue("capacity")); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			h.redirectWithFlash(w, r, detail, "error", "Kapasitas tidak valid")
			return
		}
		input.Capacity = capacity
	}

	actor := rbac.IdentityFromContext(r.Context())
	if _, err := h.service.ScheduleBatch(r.Context(), input, actor); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			h.redirectWithFlash(w, r, detail, "error", vErr.Message)
			return
		}
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("schedule batch", slog.Any("error", err))
		h.redirectWithFlash(w, r, detail, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, detail, "success", "Angkatan berhasil dijadwalkan")
}

func (h *Handler) parseCourseForm(w http.ResponseWriter, r *http.Request) (CourseInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return CourseInput{}, false
	}
	return CourseInput{
		Code:        r.PostFormValue("code"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}, true
}

func (h *Handler) handleCourseError(w http.ResponseWriter, r *http.Request, title string, input CourseInput, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		h.render(w, r, "pages/courses/form.html", title, map[string]any{
			"Form":   input,
			"Errors": formErrors{vErr.Field: vErr.Message},
		}, http.StatusBadRequest)
		return
	}
	h.logger.Error("save course", slog.Any("error", err))
	h.render(w, r, "pages/courses/form.html", title, map[string]any{
		"Form":   input,
		"Errors": formErrors{"general": shared.UserSafeMessage(err)},
	}, http.StatusInternalServerError)
}

func (h *Handler) courseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
