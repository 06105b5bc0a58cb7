package core

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// PermissionNames maps single permission bits to their display names.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite:    "Create Instant Invite",
	discordgo.PermissionKickMembers:            "Kick Members",
	discordgo.PermissionBanMembers:             "Ban Members",
	discordgo.PermissionAdministrator:          "Administrator",
	discordgo.PermissionManageChannels:         "Manage Channels",
	discordgo.PermissionManageGuild:            "Manage Server",
	discordgo.PermissionAddReactions:           "Add Reactions",
	discordgo.PermissionViewAuditLogs:          "View Audit Logs",
	discordgo.PermissionViewChannel:            "View Channel",
	discordgo.PermissionSendMessages:           "Send Messages",
	discordgo.PermissionSendTTSMessages:        "Send TTS Messages",
	discordgo.PermissionManageMessages:         "Manage Messages",
	discordgo.PermissionEmbedLinks:             "Embed Links",
	discordgo.PermissionAttachFiles:            "Attach Files",
	discordgo.PermissionReadMessageHistory:     "Read Message History",
	discordgo.PermissionMentionEveryone:        "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:      "Use External Emojis",
	discordgo.PermissionUseApplicationCommands: "Use Application Commands",
	discordgo.PermissionManageThreads:          "Manage Threads",
	discordgo.PermissionCreatePublicThreads:    "Create Public Threads",
	discordgo.PermissionCreatePrivateThreads:   "Create Private Threads",
	discordgo.PermissionSendMessagesInThreads:  "Send Messages in Threads",
	discordgo.PermissionVoiceConnect:           "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:             "Speak",
	discordgo.PermissionVoiceMuteMembers:       "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:     "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:       "Move Members",
	discordgo.PermissionChangeNickname:         "Change Nickname",
	discordgo.PermissionManageNicknames:        "Manage Nicknames",
	discordgo.PermissionManageRoles:            "Manage Roles",
	discordgo.PermissionManageWebhooks:         "Manage Webhooks",
	discordgo.PermissionManageEvents:           "Manage Events",
	discordgo.PermissionModerateMembers:        "Moderate Members",
}

// HasPermissions reports whether granted covers every bit of required.
// Administrators always pass.
func HasPermissions(granted, required int64) bool {
	if required == 0 {
		return true
	}
	if granted&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return granted&required == required
}

// PermissionList renders a bitfield as sorted display names.
func PermissionList(perms int64) []string {
	var names []string
	for p := uint64(perms); p != 0; p &= p - 1 {
		bit := int64(1) << bits.TrailingZeros64(p)
		name := PermissionNames[bit]
		if name == "" {
			name = fmt.Sprintf("0x%x", bit)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DescribePermissions renders a bitfield for user-facing messages.
func DescribePermissions(perms int64) string {
	return "`" + strings.Join(PermissionList(perms), "`, `") + "`"
}
