package tasksource

import (
	"fmt"
	"strings"
)

// SourceSpec specifies how to create a task source.
type SourceSpec struct {
	Type   SourceType
	Name   string
	Config map[string]string
}

// ParseSourceSpec parses a source specification string.
// Format: "type:param1=value1,param2=value2"
// Examples:
//   - "obsidian:path=~/notes"
//   - "beads:cwd=/path/to/project"
//   - "linear:team=TEAM123"
//   - "github:owner=user,repo=myrepo"
//   - "local:list=work"
//
// The optional "name" parameter names the source; it defaults to the type.
func ParseSourceSpec(spec string) (SourceSpec, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return SourceSpec{}, fmt.Errorf("%w: invalid source spec format: %s", ErrInvalidConfig, spec)
	}

	config := make(map[string]string)
	if parts[1] != "" {
		for _, param := range strings.Split(parts[1], ",") {
			kv := strings.SplitN(param, "=", 2)
			if len(kv) != 2 {
				return SourceSpec{}, fmt.Errorf("%w: invalid parameter format: %s", ErrInvalidConfig, param)
			}
			config[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}

	s := SourceSpec{
		Type:   SourceType(strings.TrimSpace(parts[0])),
		Name:   config["name"],
		Config: config,
	}
	delete(s.Config, "name")
	return s, nil
}

// String renders the spec back into the ParseSourceSpec format.
func (s SourceSpec) String() string {
	var params []string
	if s.Name != "" {
		params = append(params, "name="+s.Name)
	}
	for _, k := range []string{"path", "daily", "owner", "repo", "team", "cwd", "list", "redis_url"} {
		if v := s.Config[k]; v != "" {
			params = append(params, k+"="+v)
		}
	}
	return string(s.Type) + ":" + strings.Join(params, ",")
}

// CreateSource creates a TaskSource from a specification.
func CreateSource(spec SourceSpec) (TaskSource, error) {
	switch spec.Type {
	case SourceTypeObsidian:
		path := spec.Config["path"]
		if path == "" {
			return nil, fmt.Errorf("%w: obsidian requires 'path' parameter", ErrInvalidConfig)
		}
		return NewObsidianSource(ObsidianConfig{
			Name:      spec.Name,
			Path:      expandHome(path),
			DailyNote: spec.Config["daily"],
		})

	case SourceTypeBeads:
		return NewBeadsSource(BeadsConfig{Name: spec.Name, Cwd: expandHome(spec.Config["cwd"])})

	case SourceTypeLinear:
		apiKey := spec.Config["token"]
		if apiKey == "" {
			apiKey = spec.Config["api_key"]
		}
		return NewLinearSource(LinearConfig{
			Name:   spec.Name,
			APIKey: apiKey,
			TeamID: spec.Config["team"],
		})

	case SourceTypeGitHub:
		owner, hasOwner := spec.Config["owner"]
		repo, hasRepo := spec.Config["repo"]
		if !hasOwner || !hasRepo {
			return nil, fmt.Errorf("%w: github requires 'owner' and 'repo' parameters", ErrInvalidConfig)
		}
		return NewGitHubSource(GitHubConfig{
			Name:  spec.Name,
			Token: spec.Config["token"],
			Owner: owner,
			Repo:  repo,
		})

	case SourceTypeLocal:
		return NewLocalSource(LocalConfig{
			Name:     spec.Name,
			RedisURL: spec.Config["redis_url"],
			List:     spec.Config["list"],
		})

	default:
		return nil, fmt.Errorf("%w: unsupported source type: %s", ErrInvalidConfig, spec.Type)
	}
}

// CreateMultiSourceFromSpecs creates a MultiSource from multiple specifications.
// Source names must be unique.
func CreateMultiSourceFromSpecs(specs []SourceSpec) (*MultiSource, error) {
	var sources []TaskSource
	seen := make(map[string]bool)

	for _, spec := range specs {
		source, err := CreateSource(spec)
		if err != nil {
			closeAll(sources)
			return nil, fmt.Errorf("failed to create source %s: %w", spec.Type, err)
		}
		name := source.Info().Name
		if seen[name] {
			source.Close()
			closeAll(sources)
			return nil, fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, name)
		}
		seen[name] = true
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources specified", ErrInvalidConfig)
	}

	return NewMultiSource(sources...), nil
}

// CreateMultiSourceFromStrings creates a MultiSource from string specifications.
func CreateMultiSourceFromStrings(specs []string) (*MultiSource, error) {
	var sourceSpecs []SourceSpec

	for _, specStr := range specs {
		spec, err := ParseSourceSpec(specStr)
		if err != nil {
			return nil, err
		}
		sourceSpecs = append(sourceSpecs, spec)
	}

	return CreateMultiSourceFromSpecs(sourceSpecs)
}

func closeAll(sources []TaskSource) {
	for _, s := range sources {
		s.Close()
	}
}
