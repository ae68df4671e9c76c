package config

import (
	"sort"
	"strings"
)

type Cors struct {
	Origins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	Methods string   `env:"CORS_ALLOWED_METHODS" envDefault:"POST, GET, OPTIONS"`
	Headers string   `env:"CORS_ALLOWED_HEADERS" envDefault:"Content-Type, Authorization"`
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := make(AllowedOrigins, len(c.Origins))
	for _, o := range c.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (c Cors) GetAllowedMethods() string {
	return c.Methods
}

func (c Cors) GetAllowedHeaders() string {
	return c.Headers
}
