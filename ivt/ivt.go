// Package ivt implements the InternalsVisibleTo analyzer (spec.md §4.G,
// component G): identifying cross-assembly accesses to internal members that
// a declared friend relationship permits.
package ivt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/binarycompat/bincompat/assembly"
)

// Usage records one permitted cross-assembly access to an internal member
// via a declared InternalsVisibleTo friend relationship (spec.md §3).
type Usage struct {
	ExposingAssembly  string
	ConsumingAssembly string
	Member            string
}

// Line renders u the way it appears in an IVT report.
func (u Usage) Line() string {
	return fmt.Sprintf("%s -> %s: %s", u.ConsumingAssembly, u.ExposingAssembly, u.Member)
}

// Analyzer accumulates Usages as the checker resolves internal member/type
// references (spec.md §4.G).
type Analyzer struct {
	usages []Usage
}

// New creates an empty Analyzer.
func New() *Analyzer { return &Analyzer{} }

// Observe is the checker.MemberResolvedFunc hook: called for every resolved
// non-public type/member reference. It records a Usage only when declarer's
// InternalsVisibleTo list names consumer as a friend.
func (a *Analyzer) Observe(consumer, declarer *assembly.Def, member string) {
	if !isFriend(declarer, consumer) {
		return
	}
	a.usages = append(a.usages, Usage{
		ExposingAssembly:  declarer.Id.ShortName,
		ConsumingAssembly: consumer.Id.ShortName,
		Member:            member,
	})
}

// isFriend matches the IVT grammar per spec.md §9: short-name match is
// mandatory, public-key-token match applies only when the friend clause
// specifies one.
func isFriend(declarer, consumer *assembly.Def) bool {
	if declarer.Module == nil {
		return false
	}
	for _, friend := range declarer.Module.InternalsVisibleTo {
		if !strings.EqualFold(friend.ShortName, consumer.Id.ShortName) {
			continue
		}
		if !friend.HasPublicKey {
			return true
		}
		if consumer.Id.HasPublicKeyToken && tokensEqual(friend.PublicKeyToken, consumer.Id.PublicKeyToken) {
			return true
		}
	}
	return false
}

func tokensEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Usages returns every recorded IVT usage, sorted for deterministic output.
func (a *Analyzer) Usages() []Usage {
	out := make([]Usage, len(a.usages))
	copy(out, a.usages)
	sort.Slice(out, func(i, j int) bool { return out[i].Line() < out[j].Line() })
	return out
}

// isRoslynExposer reports whether name looks like a Roslyn/VS-language-
// services assembly, per spec.md §4.G's filtered sub-report rule.
func isRoslynExposer(name string) bool {
	return strings.Contains(name, "Microsoft.CodeAnalysis") || strings.Contains(name, "VisualStudio.LanguageServices")
}

// WriteReports writes reportPath+".ivt.txt" (every usage) and
// reportPath+".ivt.roslyn.txt" (usages exposed by a Roslyn/VS-language-
// services assembly whose consumer is not itself one), per spec.md §4.G.
func (a *Analyzer) WriteReports(reportPath string) error {
	usages := a.Usages()

	var all, roslyn []string
	for _, u := range usages {
		all = append(all, u.Line())
		if isRoslynExposer(u.ExposingAssembly) && !isRoslynExposer(u.ConsumingAssembly) {
			roslyn = append(roslyn, u.Line())
		}
	}
	if err := os.WriteFile(reportPath+".ivt.txt", []byte(strings.Join(all, "\n")), 0o644); err != nil {
		return err
	}
	return os.WriteFile(reportPath+".ivt.roslyn.txt", []byte(strings.Join(roslyn, "\n")), 0o644)
}
