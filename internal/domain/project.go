package domain

import "time"

// Project describes a registered source repository with a routable subdomain.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RepoURL   string    `json:"repoURL"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"createdAt"`
}
