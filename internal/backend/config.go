package backend

// DriverConfig is the backend-kind-specific half of a Config.
type DriverConfig interface {
	ToMap() map[string]interface{}
}

// Config is a backend configuration discriminated by driver kind.
// Adapter construction is the single place the kind is dispatched.
type Config struct {
	Driver       string `mapstructure:"driver"`
	DriverConfig DriverConfig
}

// Kind returns the backend kind named by the driver field.
func (c *Config) Kind() Kind {
	return Kind(c.Driver)
}
