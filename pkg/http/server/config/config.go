package config

// Server carries the fasthttp listener settings, filled from the environment.
type Server struct {
	Name string `mapstructure:"SERVER_NAME"`
	Port string `mapstructure:"SERVER_PORT"`
}
