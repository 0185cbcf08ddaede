package docker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComposeFile is the subset of a Compose file needed to name containers.
type ComposeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]ComposeService `yaml:"services"`
}

// ComposeService is a minimal service definition.
type ComposeService struct {
	Image         string `yaml:"image"`
	ContainerName string `yaml:"container_name"`
}

// ParseComposeFile reads a compose.yml.
func ParseComposeFile(path string) (*ComposeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var cf ComposeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	return &cf, nil
}

// ServiceNames returns the service names, sorted.
func (cf *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(cf.Services))
	for name := range cf.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Container resolves the container name Compose gives the first replica of
// service. An explicit container_name wins; otherwise the project is the
// file's name field or, failing that, its directory name.
func (cf *ComposeFile) Container(path, service string) (string, error) {
	svc, ok := cf.Services[service]
	if !ok {
		return "", fmt.Errorf("service %q not in compose file (have %s)", service, strings.Join(cf.ServiceNames(), ", "))
	}
	if svc.ContainerName != "" {
		return svc.ContainerName, nil
	}
	project := cf.Name
	if project == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		project = strings.ToLower(filepath.Base(filepath.Dir(abs)))
	}
	return fmt.Sprintf("%s-%s-1", project, service), nil
}
