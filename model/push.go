package model

import "time"

// PushRegistration represents a single device registered for push notifications.
// Roles are stored normalized (trimmed, lowercased, deduplicated); writing
// unnormalized roles directly is a latent correctness bug because dispatch
// lookups match exact lowercase roles.
type PushRegistration struct {
	Token     string    `json:"token"`
	Roles     []string  `json:"roles"`
	Platform  string    `json:"platform"`
	UserAgent string    `json:"userAgent"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Notification represents the payload handed to the push transport for a single
// multicast send.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
