package command

import "pkt.systems/qult/core"

// Kind classifies a command token. Dispatch is a Kind to handler table.
type Kind int

const (
	KindUnknown Kind = iota
	KindElevated
	KindClear
	KindEcho
	KindAI
	KindCat
	KindService
	KindCase
	KindName
	KindWhoami
	KindContent
	KindRestricted
)

func (k Kind) String() string {
	switch k {
	case KindElevated:
		return "elevated"
	case KindClear:
		return "clear"
	case KindEcho:
		return "echo"
	case KindAI:
		return "ai"
	case KindCat:
		return "cat"
	case KindService:
		return "service"
	case KindCase:
		return "case"
	case KindName:
		return "name"
	case KindWhoami:
		return "whoami"
	case KindContent:
		return "content"
	case KindRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// ContentCommands lists the commands that render a fragment of the same name,
// in completion order.
var ContentCommands = []string{"about", "highlights", "services", "cases", "contact", "creds", "help"}

// MOTDFragment is the fragment rendered when a session starts.
const MOTDFragment = "motd"

// ServiceSlugs and CaseSlugs are the argument completion pools for svc and case.
var (
	ServiceSlugs = []string{"security", "perf", "avail", "strategy", "people", "proc", "infra", "cost", "ai"}
	CaseSlugs    = []string{"sample"}
)

var restrictedCommands = []string{
	"ls", "cd", "pwd", "rm", "mv", "cp", "touch", "mkdir", "rmdir", "chmod", "chown",
	"nano", "vim", "grep", "less", "tail", "head", "top", "ps", "kill", "curl", "wget",
	"set", "unset",
}

var keywordKinds = map[string]Kind{
	"su":     KindElevated,
	"sudo":   KindElevated,
	"clear":  KindClear,
	"echo":   KindEcho,
	"ai":     KindAI,
	"cat":    KindCat,
	"svc":    KindService,
	"case":   KindCase,
	"name":   KindName,
	"whoami": KindWhoami,
}

var contentSet = toSet(ContentCommands)

var restrictedSet = toSet(restrictedCommands)

// Classify maps a lowercased command token to its Kind. Keywords win over content
// commands, which win over the restricted deny-list.
func Classify(token string) Kind {
	if kind, ok := keywordKinds[token]; ok {
		return kind
	}
	if _, ok := contentSet[token]; ok {
		return KindContent
	}
	if _, ok := restrictedSet[token]; ok {
		return KindRestricted
	}
	return KindUnknown
}

// Restricted reports whether token is on the deny-list.
func Restricted(token string) bool {
	_, ok := restrictedSet[token]
	return ok
}

// NewCompleter returns the completion pools for the command set.
func NewCompleter() *core.Completer {
	commands := append([]string(nil), ContentCommands...)
	commands = append(commands, "help", "clear", "echo", "svc", "case", "cat", "ai", "su", "sudo", "name", "whoami")
	return core.NewCompleter(commands, map[string][]string{
		"svc":  ServiceSlugs,
		"case": CaseSlugs,
	})
}

// ResourceID returns the fragment id of a resource detail, e.g. "service-security".
func ResourceID(kind Kind, slug string) string {
	switch kind {
	case KindService:
		return "service-" + slug
	case KindCase:
		return "case-" + slug
	default:
		return ""
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
