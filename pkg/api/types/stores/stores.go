package stores

import (
	"github.com/storeward/storeward/pkg/api/types/misc/rfctime"
	"github.com/storeward/storeward/pkg/domain"
)

// StoreSpec is the request body of `POST /api/v1/stores`.
//
// AdminPassword is write-only. It goes to the chart and never comes back
// in any response.
type StoreSpec struct {
	Name          string `json:"name"`
	Engine        string `json:"engine"`
	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// Summary is the list-response form of a store.
type Summary struct {
	Id        string          `json:"id"`
	Name      string          `json:"name"`
	Engine    string          `json:"engine"`
	Status    string          `json:"status"`
	StoreURL  string          `json:"store_url,omitempty"`
	CreatedAt rfctime.RFC3339 `json:"created_at"`
}

// Detail is the single-store response form.
type Detail struct {
	Id            string          `json:"id"`
	Name          string          `json:"name"`
	Engine        string          `json:"engine"`
	Status        string          `json:"status"`
	StoreURL      string          `json:"store_url,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Namespace     string          `json:"namespace"`
	AdminUsername string          `json:"admin_username"`
	AdminEmail    string          `json:"admin_email"`
	CreatedAt     rfctime.RFC3339 `json:"created_at"`
	UpdatedAt     rfctime.RFC3339 `json:"updated_at"`
}

// List is the response body of `GET /api/v1/stores`.
type List struct {
	Stores []Summary `json:"stores"`
}

// Deletion is the response body of `DELETE /api/v1/stores/{id}`.
type Deletion struct {
	Id     string `json:"id"`
	Status string `json:"status"`
}

func ComposeDeletion(s domain.Store) Deletion {
	return Deletion{Id: s.Id, Status: s.Status.String()}
}

func ComposeSummary(s domain.Store) Summary {
	return Summary{
		Id:        s.Id,
		Name:      s.Name,
		Engine:    s.Engine.String(),
		Status:    s.Status.String(),
		StoreURL:  s.StoreURL,
		CreatedAt: rfctime.New(s.CreatedAt),
	}
}

func ComposeDetail(s domain.Store) Detail {
	return Detail{
		Id:            s.Id,
		Name:          s.Name,
		Engine:        s.Engine.String(),
		Status:        s.Status.String(),
		StoreURL:      s.StoreURL,
		FailureReason: s.FailureReason,
		Namespace:     s.Namespace,
		AdminUsername: s.Admin.Username,
		AdminEmail:    s.Admin.Email,
		CreatedAt:     rfctime.New(s.CreatedAt),
		UpdatedAt:     rfctime.New(s.UpdatedAt),
	}
}
