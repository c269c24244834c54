package entity

// ClientProfile carries the client-to-factory column mapping used to steer the prompt.
type ClientProfile struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Mapping     string `json:"mapping" yaml:"mapping"`
}
