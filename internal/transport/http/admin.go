package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/domain"
)

// AdminMemberService is the minimal interface for member administration.
type AdminMemberService interface {
	CreateMember(ctx context.Context, in app.CreateMemberInput) (domain.Member, error)
	ListMembers(ctx context.Context) ([]domain.Member, error)
	SetMemberStatus(ctx context.Context, memberID, status string) error
}

// AdminCatalogService is the minimal interface for title/copy administration.
type AdminCatalogService interface {
	CreateTitle(ctx context.Context, in app.CreateTitleInput) (domain.Title, error)
	ListTitles(ctx context.Context) ([]domain.Title, error)
	AddCopy(ctx context.Context, in app.AddCopyInput) (domain.Copy, error)
	ListCopies(ctx context.Context, titleID string) ([]domain.Copy, error)
}

// HandleAdminMembers returns an HTTP handler for member creation/listing
// and POST /admin/members/{id}/status.
func HandleAdminMembers(svc AdminMemberService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if memberID, ok := parseMemberStatusPath(r.URL.Path); ok {
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleMemberStatus(w, r, svc, memberID)
			return
		}

		if strings.Trim(r.URL.Path, "/") != "admin/members" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			members, err := svc.ListMembers(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]memberResponse, 0, len(members))
			for _, m := range members {
				resp = append(resp, memberResponse{
					ID:        m.ID,
					Name:      m.Name,
					Email:     m.Email,
					Status:    string(m.Status),
					CreatedAt: m.CreatedAt,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createMemberRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Name == "" {
				writeError(w, http.StatusBadRequest, codeMemberNameRequired, domain.ErrMemberNameRequired.Error())
				return
			}

			member, err := svc.CreateMember(r.Context(), app.CreateMemberInput{
				Name:  req.Name,
				Email: req.Email,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(memberResponse{
				ID:        member.ID,
				Name:      member.Name,
				Email:     member.Email,
				Status:    string(member.Status),
				CreatedAt: member.CreatedAt,
			})
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleMemberStatus(w http.ResponseWriter, r *http.Request, svc AdminMemberService, memberID string) {
	var req memberStatusRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	if err := svc.SetMemberStatus(r.Context(), memberID, req.Status); err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrInvalidStatus:
			writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
		case domain.ErrMemberNotFound:
			writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(memberStatusRequest{Status: req.Status})
}

// HandleAdminTitles returns an HTTP handler for title creation/listing
// and /admin/titles/{id}/copies.
func HandleAdminTitles(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if titleID, ok := parseTitleCopiesPath(r.URL.Path); ok {
			handleTitleCopies(w, r, svc, titleID)
			return
		}

		if strings.Trim(r.URL.Path, "/") != "admin/titles" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			titles, err := svc.ListTitles(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]titleResponse, 0, len(titles))
			for _, t := range titles {
				resp = append(resp, titleResponse{ID: t.ID, Name: t.Name, Author: t.Author, ISBN: t.ISBN})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createTitleRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Name == "" {
				writeError(w, http.StatusBadRequest, codeTitleNameRequired, domain.ErrTitleNameRequired.Error())
				return
			}

			title, err := svc.CreateTitle(r.Context(), app.CreateTitleInput{
				Name:   req.Name,
				Author: req.Author,
				ISBN:   req.ISBN,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(titleResponse{ID: title.ID, Name: title.Name, Author: title.Author, ISBN: title.ISBN})
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleTitleCopies(w http.ResponseWriter, r *http.Request, svc AdminCatalogService, titleID string) {
	switch r.Method {
	case http.MethodGet:
		copies, err := svc.ListCopies(r.Context(), titleID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusNotFound, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		resp := make([]copyResponse, 0, len(copies))
		for _, c := range copies {
			resp = append(resp, copyResponse{ID: c.ID, TitleID: c.TitleID, Barcode: c.Barcode, Status: string(c.Status)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	case http.MethodPost:
		var req addCopyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Barcode == "" {
			writeError(w, http.StatusBadRequest, codeBarcodeRequired, domain.ErrBarcodeRequired.Error())
			return
		}

		c, err := svc.AddCopy(r.Context(), app.AddCopyInput{
			TitleID: titleID,
			Barcode: req.Barcode,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusNotFound, codeInvalidID, err.Error())
			case domain.ErrTitleNotFound:
				writeError(w, http.StatusNotFound, codeTitleNotFound, err.Error())
			case domain.ErrBarcodeTaken:
				writeError(w, http.StatusConflict, codeBarcodeTaken, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(copyResponse{ID: c.ID, TitleID: c.TitleID, Barcode: c.Barcode, Status: string(c.Status)})
	default:
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

func parseMemberStatusPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "members" || parts[3] != "status" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func parseTitleCopiesPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "titles" || parts[3] != "copies" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type memberResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type memberStatusRequest struct {
	Status string `json:"status"`
}

type createTitleRequest struct {
	Name   string `json:"name"`
	Author string `json:"author,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
}

type titleResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type addCopyRequest struct {
	Barcode string `json:"barcode"`
}

type copyResponse struct {
	ID      string `json:"id"`
	TitleID string `json:"title_id"`
	Barcode string `json:"barcode"`
	Status  string `json:"status"`
}
