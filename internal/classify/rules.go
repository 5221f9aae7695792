package classify

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// RuleSet is the pluggable grammar the classifier works from: which
// subrecord types carry prose for which record types, which token
// patterns must survive translation verbatim, and which payloads are
// script code rather than prose.
type RuleSet struct {
	allow          map[string]map[string]bool
	placeholders   []*regexp.Regexp
	scriptPrefixes []string
	codeMarkers    []string
}

// translatableSubrecords maps record type tags to the subrecord types
// whose payloads hold player-visible text.
var translatableSubrecords = map[string][]string{
	"ACTI": {"FNAM"},
	"ALCH": {"FNAM"},
	"APPA": {"FNAM"},
	"ARMO": {"FNAM"},
	"BODY": {"FNAM"},
	"BOOK": {"FNAM", "TEXT"},
	"BSGN": {"FNAM", "DESC"},
	"CLAS": {"FNAM", "DESC"},
	"CLOT": {"FNAM"},
	"CONT": {"FNAM"},
	"CREA": {"FNAM"},
	"DIAL": {"NAME"},
	"DOOR": {"FNAM"},
	"ENCH": {"FNAM"},
	"FACT": {"FNAM"},
	"GLOB": {"FNAM"},
	"GMST": {"STRV"},
	"INFO": {"NAME"},
	"INGR": {"FNAM"},
	"LEVC": {"NNAM"},
	"LEVI": {"NNAM"},
	"LIGH": {"FNAM"},
	"LOCK": {"FNAM"},
	"MGEF": {"DESC"},
	"MISC": {"FNAM"},
	"NPC_": {"FNAM"},
	"PGRD": {"NAME"},
	"PROB": {"FNAM"},
	"RACE": {"FNAM", "DESC"},
	"REGN": {"FNAM"},
	"REPA": {"FNAM"},
	"SKIL": {"DESC"},
	"SNDG": {"FNAM"},
	"SOUN": {"FNAM"},
	"SPEL": {"FNAM"},
	"SSCR": {"NAME"},
	"STAT": {"FNAM"},
	"WEAP": {"FNAM"},
}

// placeholderPatterns match substitution tokens the game engine expands
// at runtime. They must reach the output byte-for-byte.
var placeholderPatterns = []string{
	`%[A-Za-z][A-Za-z0-9]*`,                    // %PCName, %Name, %Cell
	`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`,     // printf-style codes in GMST strings
	`%%`,                                       // escaped percent literal
	`@[A-Za-z_][A-Za-z0-9_]*`,                  // engine @tokens
	`\^[A-Za-z_][A-Za-z0-9_]*`,                 // caret control tokens
}

// scriptPrefixes mark a payload as script source when the lowercased
// text starts with one of them.
var scriptPrefixes = []string{
	"begin ", "end\n", "endif", "while (", "if (", "else\n",
	"getjournalindex", "messagebox", "additem", "removeitem",
	"startscript", "stopscript", "getglobal", "setglobal",
	"short ", "long ", "float ",
}

// codeMarkers anywhere in a payload mark it as code.
var codeMarkers = []string{"==", "!=", ">=", "<=", "->", "=>", "&&", "||"}

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		allow:          make(map[string]map[string]bool, len(translatableSubrecords)),
		scriptPrefixes: append([]string(nil), scriptPrefixes...),
		codeMarkers:    append([]string(nil), codeMarkers...),
	}
	for recType, subs := range translatableSubrecords {
		set := make(map[string]bool, len(subs))
		for _, sub := range subs {
			set[sub] = true
		}
		rs.allow[recType] = set
	}
	for _, p := range placeholderPatterns {
		rs.placeholders = append(rs.placeholders, regexp.MustCompile(p))
	}
	return rs
}

// rulesFile is the on-disk shape of a user rule file.
type rulesFile struct {
	Classifier struct {
		PlaceholderPatterns []string `toml:"placeholder_patterns"`
		ScriptPrefixes      []string `toml:"script_prefixes"`
	} `toml:"classifier"`
	Allow map[string][]string `toml:"allow"`
}

// LoadRules merges a TOML rule file over the built-in rule set, so new
// control-token patterns or text-bearing subtypes can be added without
// touching the codec or the pipelines.
func LoadRules(path string) (*RuleSet, error) {
	rs := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf rulesFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	for _, p := range rf.Classifier.PlaceholderPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("rule file pattern %q: %w", p, err)
		}
		rs.placeholders = append(rs.placeholders, re)
	}
	rs.scriptPrefixes = append(rs.scriptPrefixes, rf.Classifier.ScriptPrefixes...)

	for recType, subs := range rf.Allow {
		set := rs.allow[recType]
		if set == nil {
			set = make(map[string]bool, len(subs))
			rs.allow[recType] = set
		}
		for _, sub := range subs {
			set[sub] = true
		}
	}

	return rs, nil
}

// Translatable reports whether the given subrecord type may carry prose
// inside the given record type.
func (rs *RuleSet) Translatable(recordType, subType string) bool {
	return rs.allow[recordType][subType]
}

// IsProse decides whether decoded payload text is human prose rather
// than script source, a numeric literal, or a resource path.
func (rs *RuleSet) IsProse(text string) bool {
	trimmed := strings.TrimSpace(text)

	if len(trimmed) < 2 {
		return false
	}

	if isNumeric(trimmed) {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range rs.scriptPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}

	if strings.ContainsRune(trimmed, '\n') && hasScriptLine(trimmed) {
		return false
	}

	for _, marker := range rs.codeMarkers {
		if strings.Contains(trimmed, marker) {
			return false
		}
	}

	punct := 0
	for _, r := range trimmed {
		if strings.ContainsRune("{}[]()=<>!&|;", r) {
			punct++
		}
	}
	if punct > 5 && float64(punct)/float64(len(trimmed)) > 0.5 {
		return false
	}

	if strings.Count(trimmed, `\`) > 1 || strings.HasPrefix(trimmed, `data\`) {
		return false
	}

	return true
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9') && r != '.' && r != '-' && r != '+' {
			return false
		}
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// hasScriptLine reports whether any line of a multi-line payload starts
// with a script statement keyword.
func hasScriptLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, prefix := range []string{"if ", "set ", "short ", "long ", "float "} {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
	}
	return false
}
