// Package coretest provides an in-memory core.Session and event builders for tests.
package coretest

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Sent is a channel message recorded by Session.
type Sent struct {
	ChannelID  string
	Content    string
	Reference  *discordgo.MessageReference
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Session records every outbound call instead of talking to Discord.
type Session struct {
	mu sync.Mutex

	Responses   []*discordgo.InteractionResponse
	Followups   []*discordgo.WebhookParams
	Edits       []string
	Sent        []Sent
	Typing      []string
	MemberCalls int

	// Members is keyed by guildID + "/" + userID.
	Members map[string]*discordgo.Member
	// Permissions is keyed by userID + "/" + channelID.
	Permissions map[string]int64

	// Err, when set, is returned by every call.
	Err error
}

// NewSession returns an empty recording session.
func NewSession() *Session {
	return &Session{
		Members:     make(map[string]*discordgo.Member),
		Permissions: make(map[string]int64),
	}
}

func (s *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Responses = append(s.Responses, resp)
	return nil
}

func (s *Session) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	content := ""
	if edit.Content != nil {
		content = *edit.Content
	}
	s.Edits = append(s.Edits, content)
	return &discordgo.Message{Content: content}, nil
}

func (s *Session) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.Followups = append(s.Followups, data)
	return &discordgo.Message{Content: data.Content}, nil
}

func (s *Session) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: content})
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.Sent = append(s.Sent, Sent{
		ChannelID:  channelID,
		Content:    data.Content,
		Reference:  data.Reference,
		Embeds:     data.Embeds,
		Components: data.Components,
	})
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func (s *Session) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Typing = append(s.Typing, channelID)
	return nil
}

func (s *Session) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MemberCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	m, ok := s.Members[guildID+"/"+userID]
	if !ok {
		return nil, &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember, Message: "Unknown Member"}}
	}
	return m, nil
}

func (s *Session) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Permissions[userID+"/"+channelID], nil
}

// ResponseCount returns how many interaction responses were recorded.
func (s *Session) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Responses)
}

// LastResponse returns the most recent interaction response, or nil.
func (s *Session) LastResponse() *discordgo.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Responses) == 0 {
		return nil
	}
	return s.Responses[len(s.Responses)-1]
}

// SentMessages returns a copy of the recorded channel messages.
func (s *Session) SentMessages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.Sent...)
}
