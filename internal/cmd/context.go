package cmd

import (
	"io"

	"github.com/rs/zerolog"

	"go-jobpost-automation/internal/config"
)

type Context struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Config     *config.Config
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	Version    string
}
