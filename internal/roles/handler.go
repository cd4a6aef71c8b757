package roles

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/akademia-app/akademia/internal/rbac"
	"github.com/akademia-app/akademia/internal/shared"
	"github.com/akademia-app/akademia/internal/view"
)

// Handler serves the role management pages on top of the rbac service.
type Handler struct {
	logger    *slog.Logger
	service   *rbac.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers role management routes. Viewing requires
// read/settings; every mutation requires manage/settings.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionRead, rbac.SubjectSettings))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionManage, rbac.SubjectSettings))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createRole)
		r.Get("/{roleID}/edit", h.showEditForm)
		r.Post("/{roleID}", h.updateRole)
		r.Post("/{roleID}/delete", h.deleteRole)
	})
}

type formErrors map[string]string

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	identity := rbac.IdentityFromContext(r.Context())
	h.render(w, r, "pages/roles/list.html", map[string]any{
		"Roles":     roles,
		"CanManage": rbac.HasPermission(identity, rbac.ActionManage, rbac.SubjectSettings),
	}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, rbac.Role{}, rbac.RoleInput{}, formErrors{}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	if _, err := h.service.CreateRole(r.Context(), input, actor); err != nil {
		h.handleMutationError(w, r, rbac.Role{}, input, err)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Peran berhasil dibuat")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	role, ok := h.loadRole(w, r)
	if !ok {
		return
	}
	input := rbac.RoleInput{Name: role.Name, Description: role.Description}
	for _, p := range role.Permissions {
		input.PermissionIDs = append(input.PermissionIDs, p.ID)
	}
	h.renderForm(w, r, role, input, formErrors{}, http.StatusOK)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.loadRole(w, r)
	if !ok {
		return
	}
	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	if _, err := h.service.UpdateRole(r.Context(), role.ID, input, actor); err != nil {
		h.handleMutationError(w, r, role, input, err)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Peran berhasil diperbarui")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.loadRole(w, r)
	if !ok {
		return
	}
	actor := rbac.IdentityFromContext(r.Context())
	if err := h.service.DeleteRole(r.Context(), role.ID, actor); err != nil {
		var verr *rbac.ValidationError
		if errors.As(err, &verr) {
			h.redirectWithFlash(w, r, "/roles", "error", verr.Message)
			return
		}
		h.logger.Error("delete role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Peran berhasil dihapus")
}

func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (rbac.RoleInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return rbac.RoleInput{}, false
	}
	return rbac.RoleInput{
		Name:          r.PostFormValue("name"),
		Description:   r.PostFormValue("description"),
		PermissionIDs: r.PostForm["permissions"],
	}, true
}

func (h *Handler) loadRole(w http.ResponseWriter, r *http.Request) (rbac.Role, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return rbac.Role{}, false
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			h.logger.Error("load role", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return rbac.Role{}, false
	}
	return role, true
}

func (h *Handler) handleMutationError(w http.ResponseWriter, r *http.Request, role rbac.Role, input rbac.RoleInput, err error) {
	var verr *rbac.ValidationError
	if errors.As(err, &verr) {
		h.renderForm(w, r, role, input, formErrors{verr.Field: verr.Message}, http.StatusBadRequest)
		return
	}
	h.logger.Error("save role", slog.Any("error", err))
	h.renderForm(w, r, role, input, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, role rbac.Role, input rbac.RoleInput, errs formErrors, status int) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		perms = rbac.Catalog()
	}
	selected := make(map[string]bool, len(input.PermissionIDs))
	for _, id := range input.PermissionIDs {
		selected[id] = true
	}
	h.render(w, r, "pages/roles/form.html", map[string]any{
		"Role":        role,
		"Form":        input,
		"Permissions": perms,
		"Selected":    selected,
		"Errors":      errs,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Peran", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
