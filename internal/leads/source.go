package leads

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed channels.yaml
var channelsRaw []byte

type channelRule struct {
	Source         string   `yaml:"source"`
	SenderContains []string `yaml:"senderContains"`
	BodyContains   []string `yaml:"bodyContains"`
}

type channelFile struct {
	Channels []channelRule `yaml:"channels"`
}

var channelRules = mustLoadChannels()

func mustLoadChannels() []channelRule {
	var file channelFile
	if err := yaml.Unmarshal(channelsRaw, &file); err != nil {
		panic(fmt.Sprintf("leads: invalid channels.yaml: %v", err))
	}
	if len(file.Channels) == 0 {
		panic("leads: channels.yaml defines no channels")
	}
	return file.Channels
}

// DetectSource maps a message's sender address and body to a broker channel.
// Matching is case-insensitive substring membership; anything unmatched is
// SourceUnknown.
func DetectSource(sender, body string) Source {
	loweredSender := strings.ToLower(sender)
	loweredBody := strings.ToLower(body)

	for _, rule := range channelRules {
		for _, token := range rule.SenderContains {
			if token != "" && strings.Contains(loweredSender, strings.ToLower(token)) {
				return Source(rule.Source)
			}
		}
		for _, token := range rule.BodyContains {
			if token != "" && strings.Contains(loweredBody, strings.ToLower(token)) {
				return Source(rule.Source)
			}
		}
	}
	return SourceUnknown
}
