// Package redirect implements the config-redirect processor (spec.md §4.E,
// component E): parsing application configuration files for binding
// redirects and applying them to pending version mismatches.
package redirect

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/binarycompat/bincompat/assembly"
	"github.com/binarycompat/bincompat/checker"
)

// No third-party XML library appears anywhere in the reference corpus, so
// this is the one ambient concern built on the standard library alone
// (see DESIGN.md).

type configFile struct {
	XMLName xml.Name `xml:"configuration"`
	Runtime struct {
		AssemblyBinding struct {
			DependentAssembly []dependentAssemblyXML `xml:"dependentAssembly"`
		} `xml:"assemblyBinding"`
	} `xml:"runtime"`
}

type dependentAssemblyXML struct {
	AssemblyIdentity struct {
		Name           string `xml:"name,attr"`
		PublicKeyToken string `xml:"publicKeyToken,attr"`
		Culture        string `xml:"culture,attr"`
	} `xml:"assemblyIdentity"`
	BindingRedirect struct {
		OldVersion string `xml:"oldVersion,attr"`
		NewVersion string `xml:"newVersion,attr"`
	} `xml:"bindingRedirect"`
}

// Redirect is one parsed <dependentAssembly> binding-redirect entry.
type Redirect struct {
	Name                 string
	PublicKeyToken       string
	Culture              string
	OldMin, OldMax        assembly.Version
	New                  assembly.Version
}

// Matches reports whether ref's short name and version fall within this
// redirect's declared identity and old-version range.
func (r Redirect) Matches(ref assembly.Ref) bool {
	if !strings.EqualFold(r.Name, ref.ShortName) {
		return false
	}
	return ref.Version.Compare(r.OldMin) >= 0 && ref.Version.Compare(r.OldMax) <= 0
}

// Processor parses app-config files and applies their redirects to pending
// VersionMismatches.
type Processor struct{}

// New creates a Processor.
func New() *Processor { return &Processor{} }

// Parse reads and decodes one *.exe.config/*.dll.config file's
// <runtime>/<assemblyBinding>/<dependentAssembly> entries. A redirect entry
// with an unparsable version range or new version is skipped rather than
// failing the whole file.
func (p *Processor) Parse(path string) ([]Redirect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg configFile
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	var out []Redirect
	for _, da := range cfg.Runtime.AssemblyBinding.DependentAssembly {
		oldMin, oldMax, err := parseVersionRange(da.BindingRedirect.OldVersion)
		if err != nil {
			continue
		}
		newVersion, err := assembly.ParseVersion(strings.TrimSpace(da.BindingRedirect.NewVersion))
		if err != nil {
			continue
		}
		out = append(out, Redirect{
			Name:           da.AssemblyIdentity.Name,
			PublicKeyToken: da.AssemblyIdentity.PublicKeyToken,
			Culture:        da.AssemblyIdentity.Culture,
			OldMin:         oldMin,
			OldMax:         oldMax,
			New:            newVersion,
		})
	}
	return out, nil
}

func parseVersionRange(s string) (lo, hi assembly.Version, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) == 1 {
		v, err := assembly.ParseVersion(strings.TrimSpace(parts[0]))
		return v, v, err
	}
	lo, err = assembly.ParseVersion(strings.TrimSpace(parts[0]))
	if err != nil {
		return lo, hi, err
	}
	hi, err = assembly.ParseVersion(strings.TrimSpace(parts[1]))
	return lo, hi, err
}

// Apply matches redirects against mismatches whose referencer's file name +
// ".config" equals configPath's base name, recording configPath in
// HandledBy when the identity, old-version range, and actually-resolved new
// version all agree (spec.md §4.E).
func (p *Processor) Apply(configPath string, redirects []Redirect, mismatches []*checker.VersionMismatch) {
	configBase := filepath.Base(configPath)
	for _, m := range mismatches {
		wantConfig := filepath.Base(m.Referencer.Path) + ".config"
		if !strings.EqualFold(wantConfig, configBase) {
			continue
		}
		for _, r := range redirects {
			if !r.Matches(m.Expected) {
				continue
			}
			if m.Actual.Id.Version != r.New {
				continue
			}
			m.HandledBy = append(m.HandledBy, configPath)
		}
	}
}
