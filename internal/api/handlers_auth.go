package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medbook/medbook/internal/account"
)

func registerHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in := account.RegisterInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Gender:    req.Gender,
			Phone:     req.Phone,
			Address:   req.Address,
		}
		if req.DateOfBirth != "" {
			dob, err := time.Parse("2006-01-02", req.DateOfBirth)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date_of_birth", "date_of_birth must be YYYY-MM-DD")
				return
			}
			in.DateOfBirth = &dob
		}

		user, err := svc.Register(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

func createStaffHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateStaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		user, tempPassword, err := svc.CreateStaff(r.Context(), account.StaffInput{
			Email:             req.Email,
			FirstName:         req.FirstName,
			LastName:          req.LastName,
			Role:              account.Role(req.Role),
			Specialty:         req.Specialty,
			YearsOfExperience: req.YearsOfExperience,
			Biography:         req.Biography,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		// The temp password is returned once so the operator can hand it
		// over out of band.
		writeJSON(w, http.StatusCreated, CreateStaffResponse{
			User:         toUserResponse(user),
			TempPassword: tempPassword,
		})
	}
}

func loginHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, user, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Token: token,
			User:  toUserResponse(user),
		})
	}
}

func listDoctorsHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{
				ID:                d.UserID,
				FirstName:         d.FirstName,
				LastName:          d.LastName,
				Specialty:         d.Specialty,
				YearsOfExperience: d.YearsOfExperience,
				Biography:         d.Biography,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func toUserResponse(u *account.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}
