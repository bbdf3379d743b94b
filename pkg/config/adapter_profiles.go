package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// adapterProfileSchemaConstraintText bounds the profile file format this
// version of tracectl understands. A profile declaring a SchemaVersion
// outside this range is rejected at load time rather than silently
// mis-parsed against fields that changed meaning across a major bump.
const adapterProfileSchemaConstraintText = ">=1.0.0, <2.0.0"

const defaultAdapterProfileSchemaVersion = "1.0.0"

// AdapterConnectionDetails bounds a storage adapter operation's per-call
// timeout and retry budget, per spec.md's cancellation-and-timeouts
// invariant: RetryAttempts is always clamped to 10 regardless of what a
// profile file requests.
type AdapterConnectionDetails struct {
	TimeoutMS     int `yaml:"timeout_ms" json:"timeout_ms"`
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
}

const maxRetryAttempts = 10

// Clamp enforces the 0..10 retry bound and a positive timeout floor.
func (d AdapterConnectionDetails) Clamp() AdapterConnectionDetails {
	if d.RetryAttempts > maxRetryAttempts {
		d.RetryAttempts = maxRetryAttempts
	}
	if d.RetryAttempts < 0 {
		d.RetryAttempts = 0
	}
	if d.TimeoutMS <= 0 {
		d.TimeoutMS = 5000
	}
	return d
}

// AdapterProfile is one named storage adapter configuration a circuit can
// reference by Circuit.AdapterConfigID.
type AdapterProfile struct {
	ID         string                   `yaml:"id" json:"id"`
	Variant    string                   `yaml:"variant" json:"variant"`
	Connection AdapterConnectionDetails `yaml:"connection" json:"connection"`
	// SchemaVersion declares which profile file format this entry was
	// written against. Empty defaults to defaultAdapterProfileSchemaVersion.
	SchemaVersion string `yaml:"schema_version" json:"schema_version"`
}

// LoadAdapterProfiles reads every profile_*.yaml file under dir into a map
// keyed by AdapterProfile.ID, for circuits' Registry to resolve
// AdapterConfigID against at adapter-registration time.
func LoadAdapterProfiles(dir string) (map[string]AdapterProfile, error) {
	constraint, err := semver.NewConstraint(adapterProfileSchemaConstraintText)
	if err != nil {
		return nil, fmt.Errorf("parse adapter profile schema constraint: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "profile_*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob adapter profiles in %s: %w", dir, err)
	}

	profiles := make(map[string]AdapterProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var profile AdapterProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if profile.ID == "" {
			base := filepath.Base(path)
			profile.ID = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		if profile.SchemaVersion == "" {
			profile.SchemaVersion = defaultAdapterProfileSchemaVersion
		}
		version, err := semver.NewVersion(profile.SchemaVersion)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid schema_version %q: %w", path, profile.SchemaVersion, err)
		}
		if !constraint.Check(version) {
			return nil, fmt.Errorf("%s: schema_version %q does not satisfy %s", path, profile.SchemaVersion, adapterProfileSchemaConstraintText)
		}
		profile.Connection = profile.Connection.Clamp()
		profiles[profile.ID] = profile
	}
	return profiles, nil
}
