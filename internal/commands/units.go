// Package commands holds the built-in handler units.
package commands

import (
	"github.com/keshon/harmonix/internal/core"
)

// Units returns every built-in unit in load order.
func Units() []core.Unit {
	return []core.Unit{
		{Source: "ping", Descriptor: &pingOptions, Factory: func() any { return &Ping{} }},
		{Source: "echo", Descriptor: &echoOptions, Factory: func() any { return &Echo{} }},
		{Source: "roll", Descriptor: &rollOptions, Factory: func() any { return &Roll{} }},
		{Source: "ban", Descriptor: &banOptions, Factory: func() any { return &Ban{} }},
		{Source: "ban-confirm", Descriptor: &banConfirmOptions, Factory: func() any { return &BanConfirm{} }},
		{Source: "ready", Descriptor: core.EventKey("READY"), Factory: func() any { return &Ready{} }},
	}
}
