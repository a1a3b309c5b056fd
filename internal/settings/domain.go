package settings

import "time"

// KeyDefaultPassword is the provisioning default credential applied on
// password resets.
const KeyDefaultPassword = "default_password"

// Setting is a persisted key/value pair of system configuration.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
