package manifest

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/joho/godotenv"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("manifest").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/*.tmpl"),
)

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

type serviceData struct {
	Name       string
	Port       int
	Expose     string
	EntryPoint string
	Image      string
	DependsOn  []string
	Context    string
	Network    string
}

func newServiceData(d ServiceDescriptor) (serviceData, error) {
	if err := d.Validate(); err != nil {
		return serviceData{}, err
	}
	expose, _ := containerPort(d.Port)
	return serviceData{
		Name:       d.Name,
		Port:       d.Port,
		Expose:     string(expose),
		EntryPoint: d.entryPoint(),
		Image:      d.Name + ":latest",
		DependsOn:  InfraServices,
		Network:    Network,
	}, nil
}

// DatabaseURL is the cluster-side database URL for a service.
func DatabaseURL(name string) string {
	return "mongodb://mongo/" + name
}

// BuildFile renders the Dockerfile for a service.
func BuildFile(d ServiceDescriptor) (string, error) {
	data, err := newServiceData(d)
	if err != nil {
		return "", err
	}
	return render("Dockerfile.tmpl", data)
}

// ComponentBuildFile renders the Dockerfile for a component.
func ComponentBuildFile(c ComponentDescriptor) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	kind := Components[c.Name]
	return BuildFile(ServiceDescriptor{Name: kind.Name, Port: kind.Port})
}

// ClusterDeployment renders the Kubernetes Deployment for a service.
func ClusterDeployment(d ServiceDescriptor) (string, error) {
	data, err := newServiceData(d)
	if err != nil {
		return "", err
	}
	return render("k8s-deployment.yaml.tmpl", struct {
		serviceData
		DatabaseURL string
		Replicas    int
	}{data, DatabaseURL(d.Name), 2})
}

// ClusterService renders the Kubernetes Service for a service.
func ClusterService(d ServiceDescriptor) (string, error) {
	data, err := newServiceData(d)
	if err != nil {
		return "", err
	}
	return render("k8s-service.yaml.tmpl", data)
}

// EnvironmentFile renders the service's .env file.
func EnvironmentFile(d ServiceDescriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	env := map[string]string{
		"PORT":         fmt.Sprint(d.Port),
		"MONGO_URL":    DatabaseURL(d.Name),
		"REDIS_URL":    "redis://localhost:6379",
		"RABBITMQ_URL": "amqp://localhost:5672",
		"JWT_SECRET":   "supersecret",
	}
	out, err := godotenv.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("render .env: %w", err)
	}
	return out + "\n", nil
}

type packageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	Main            string            `json:"main"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Author          string            `json:"author"`
	License         string            `json:"license"`
}

// PackageDependencies is the fixed runtime dependency set of every service.
var PackageDependencies = map[string]string{
	"amqplib":            "^0.5.6",
	"cookie-parser":      "^1.4.5",
	"cors":               "^2.8.5",
	"csurf":              "^1.11.0",
	"dotenv":             "^8.2.0",
	"express":            "^4.17.1",
	"express-rate-limit": "^5.1.3",
	"express-validator":  "^6.10.0",
	"helmet":             "^4.6.0",
	"joi":                "^17.3.0",
	"jsonwebtoken":       "^8.5.1",
	"mongoose":           "^5.10.7",
	"redis":              "^4.0.1",
	"xss-clean":          "^0.1.1",
}

// PackageManifest renders package.json. Empty author and license fall back
// to DefaultAuthor and DefaultLicense.
func PackageManifest(d ServiceDescriptor, author, license string) (string, error) {
	if err := ValidateName(d.Name); err != nil {
		return "", err
	}
	if strings.TrimSpace(author) == "" {
		author = DefaultAuthor
	}
	if strings.TrimSpace(license) == "" {
		license = DefaultLicense
	}

	entry := d.entryPoint()
	pkg := packageManifest{
		Name:        d.Name,
		Version:     "1.0.0",
		Description: d.Name + " service",
		Main:        entry,
		Scripts: map[string]string{
			"start": "node " + entry,
			"dev":   "nodemon " + entry,
		},
		Dependencies:    PackageDependencies,
		DevDependencies: map[string]string{"nodemon": "^2.0.4"},
		Author:          author,
		License:         license,
	}

	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render package.json: %w", err)
	}
	return string(data) + "\n", nil
}

// ServiceComposeBlock renders the compose block for a service. context is
// the build context relative to the compose file, e.g. "./services/orders".
func ServiceComposeBlock(d ServiceDescriptor, context string) (string, error) {
	data, err := newServiceData(d)
	if err != nil {
		return "", err
	}
	data.Context = context
	return render("compose-service.tmpl", data)
}

// ComponentComposeBlock renders the compose block for a component.
func ComponentComposeBlock(c ComponentDescriptor, context string) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	kind := Components[c.Name]
	return render("compose-component.tmpl", struct {
		ComponentKind
		Context   string
		DependsOn []string
		Network   string
	}{kind, context, InfraServices, Network})
}

// BaseComposeDocument renders the compose document a new project starts with.
func BaseComposeDocument() (string, error) {
	return render("compose-base.tmpl", struct {
		Network string
	}{Network})
}
