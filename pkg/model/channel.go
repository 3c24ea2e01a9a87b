package model

type Channel struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Icon        string `json:"icon,omitempty" mapstructure:"icon"`
}
