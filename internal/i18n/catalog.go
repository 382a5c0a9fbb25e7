// Package i18n holds the user-facing texts of the support client.
package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed pt-BR.yaml
var defaultCatalog []byte

type Catalog struct {
	Locale string `yaml:"locale"`
	Chat   struct {
		Greeting    string `yaml:"greeting"`
		ErrorNotice string `yaml:"error_notice"`
		EndPrompt   string `yaml:"end_prompt"`
	} `yaml:"chat"`
	Failures Failures `yaml:"failures"`
	Admin    struct {
		Created      string `yaml:"created"`
		Updated      string `yaml:"updated"`
		Deleted      string `yaml:"deleted"`
		LoadFailed   string `yaml:"load_failed"`
		DeletePrompt string `yaml:"delete_prompt"`
	} `yaml:"admin"`
}

// Failures are the fallback messages used when the remote service gives no detail.
type Failures struct {
	Send       string `yaml:"send"`
	List       string `yaml:"list"`
	Get        string `yaml:"get"`
	Create     string `yaml:"create"`
	Update     string `yaml:"update"`
	Delete     string `yaml:"delete"`
	Categories string `yaml:"categories"`
	Health     string `yaml:"health"`
}

// Default returns the built-in pt-BR catalog.
func Default() *Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		panic(fmt.Sprintf("i18n: embedded catalog is invalid: %v", err))
	}
	return &c
}

// Load reads a YAML catalog from path on top of the defaults, so a partial
// file only overrides the keys it names. An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "parse catalog %s", path)
	}
	return c, nil
}

// Greeting interpolates the caller's display name into the welcome message.
func (c *Catalog) Greeting(name string) string {
	return strings.ReplaceAll(c.Chat.Greeting, "{name}", name)
}
