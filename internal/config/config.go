// Package config handles project discovery and configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FileName is the project configuration file at the project root.
	FileName = "punch.yaml"
	// StateDirName holds the registry, snapshots and locks.
	StateDirName = ".punch"
	// EnvPrefix prefixes environment overrides, e.g. PUNCH_BASE_PORT.
	EnvPrefix = "PUNCH"
)

// Config holds the punch project configuration. Relative paths are resolved
// against Root by the accessor methods.
type Config struct {
	// Root is the project root directory.
	Root string `mapstructure:"-"`

	BasePort      int    `mapstructure:"base_port"`
	ServicesDir   string `mapstructure:"services_dir"`
	ComponentsDir string `mapstructure:"components_dir"`
	ComposeFile   string `mapstructure:"compose_file"`
	RegistryFile  string `mapstructure:"registry_file"`

	// TemplateDir overrides the built-in service template when set.
	TemplateDir string `mapstructure:"template_dir"`

	Author   string       `mapstructure:"author"`
	License  string       `mapstructure:"license"`
	LogLevel string       `mapstructure:"log_level"`
	Deploy   DeployConfig `mapstructure:"deploy"`
}

// DeployConfig configures the external tools punch drives.
type DeployConfig struct {
	Kubectl     string        `mapstructure:"kubectl"`
	KubeContext string        `mapstructure:"kube_context"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_port", 3000)
	v.SetDefault("services_dir", "services")
	v.SetDefault("components_dir", ".")
	v.SetDefault("compose_file", "docker-compose.yml")
	v.SetDefault("registry_file", filepath.Join(StateDirName, "registry.json"))
	v.SetDefault("template_dir", "")
	v.SetDefault("author", "Unknown")
	v.SetDefault("license", "ISC")
	v.SetDefault("log_level", "info")
	v.SetDefault("deploy.kubectl", "kubectl")
	v.SetDefault("deploy.kube_context", "")
	v.SetDefault("deploy.timeout", "0s")
}

// FindRoot searches upward from dir for a directory holding punch.yaml or
// a .punch state directory. When none is found, dir itself is the root so
// the first command run there creates the project.
func FindRoot(dir string) (string, bool) {
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, FileName)); err == nil {
			return cur, true
		}
		if info, err := os.Stat(filepath.Join(cur, StateDirName)); err == nil && info.IsDir() {
			return cur, true
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return dir, false
		}
		cur = parent
	}
}

// Load finds the project root from the working directory and loads its
// configuration.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, _ := FindRoot(wd)
	return LoadFrom(root)
}

// LoadFrom loads configuration for the project at root: defaults, then
// punch.yaml if present, then PUNCH_* environment variables.
func LoadFrom(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside an operation.
func (c *Config) Validate() error {
	var errs []error
	if c.BasePort < 1 || c.BasePort > 65535 {
		errs = append(errs, fmt.Errorf("base_port %d out of range 1-65535", c.BasePort))
	}
	if c.ServicesDir == "" {
		errs = append(errs, errors.New("services_dir must not be empty"))
	}
	if c.ComposeFile == "" {
		errs = append(errs, errors.New("compose_file must not be empty"))
	}
	if c.RegistryFile == "" {
		errs = append(errs, errors.New("registry_file must not be empty"))
	}
	if c.Deploy.Timeout < 0 {
		errs = append(errs, fmt.Errorf("deploy.timeout %s must not be negative", c.Deploy.Timeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// WriteDefault writes punch.yaml with default settings to root. An existing
// file is left alone and reported as already existing.
func WriteDefault(root string, basePort int) (string, error) {
	v := viper.New()
	setDefaults(v)
	if basePort > 0 {
		v.Set("base_port", basePort)
	}

	path := filepath.Join(root, FileName)
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return path, os.ErrExist
		}
		return "", fmt.Errorf("write %s: %w", FileName, err)
	}
	return path, nil
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// StateDir returns the path to the .punch state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.Root, StateDirName)
}

// ServicesPath returns the directory new services are created in.
func (c *Config) ServicesPath() string {
	return c.abs(c.ServicesDir)
}

// ServicePath returns the directory of one service.
func (c *Config) ServicePath(name string) string {
	return filepath.Join(c.ServicesPath(), name)
}

// ComponentPath returns the directory of one component.
func (c *Config) ComponentPath(name string) string {
	return filepath.Join(c.abs(c.ComponentsDir), name)
}

// ComposePath returns the path to the shared compose document.
func (c *Config) ComposePath() string {
	return c.abs(c.ComposeFile)
}

// RegistryPath returns the path to the registry file.
func (c *Config) RegistryPath() string {
	return c.abs(c.RegistryFile)
}

// TemplatePath returns the template override directory, or "" for the
// built-in template.
func (c *Config) TemplatePath() string {
	if c.TemplateDir == "" {
		return ""
	}
	return c.abs(c.TemplateDir)
}

// Rel returns path relative to the project root when possible.
func (c *Config) Rel(path string) string {
	rel, err := filepath.Rel(c.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
