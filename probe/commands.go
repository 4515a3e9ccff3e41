package probe

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/adprobe/probe/internal/command"
)

// Command is one step of a visit sequence.
type Command = command.Command

// Strategy selects how ad slots are clicked ("point" or "frame").
type Strategy = command.Strategy

// commandAliases maps the short CLI names to command names.
var commandAliases = map[string]string{
	"prebids":    "get_prebids",
	"ads":        "ad_interaction",
	"privacy":    "privacy_links",
	"screenshot": "save_screenshot",
	"js":         "store_js_result",
}

// BuildCommands turns a site's command names into the sequence to run.
// The sequence always starts with a visit of site.URL; a "visit" entry
// elsewhere in the list is ignored. "store_js_result" expands to one
// command per configured script.
func BuildCommands(site SiteConfig, in InteractionConfig) ([]Command, error) {
	phrases := command.PrivacyPhrases
	if len(in.Phrases) > 0 {
		phrases = command.NewPhraseSet(in.Phrases...)
	}

	cmds := []Command{command.Visit{URL: site.URL, Sleep: site.Pause()}}
	for _, name := range site.Commands {
		name = strings.ToLower(strings.TrimSpace(name))
		if alias, ok := commandAliases[name]; ok {
			name = alias
		}
		switch name {
		case "visit":
		case "get_prebids":
			cmds = append(cmds, command.GetPrebids{})
		case "ad_interaction":
			cmds = append(cmds, command.AdInteraction{})
		case "privacy_links":
			cmds = append(cmds, command.PrivacyLinkInteraction{Phrases: phrases})
		case "save_screenshot":
			cmds = append(cmds, command.SaveScreenshot{FullPage: true})
		case "store_js_result":
			if len(site.Scripts) == 0 {
				return nil, fmt.Errorf("probe: %s: store_js_result without scripts", site.URL)
			}
			for _, js := range site.Scripts {
				cmds = append(cmds, command.StoreJSResult{Script: js})
			}
		default:
			return nil, fmt.Errorf("probe: %s: unknown command %q", site.URL, name)
		}
	}
	return cmds, nil
}

// CommandNames lists the names BuildCommands accepts.
func CommandNames() []string {
	return []string{"visit", "get_prebids", "ad_interaction", "privacy_links", "save_screenshot", "store_js_result"}
}
