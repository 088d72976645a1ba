package sshserver

import "time"

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// Theme and Style select the prompt palette and the glamour style.
	Theme string
	Style string
	// MaxBlocks caps each client's scrollback.
	MaxBlocks int
	// IdleTimeout closes connections without traffic; zero disables it.
	IdleTimeout time.Duration
	// Banner is sent before authentication.
	Banner string
}
