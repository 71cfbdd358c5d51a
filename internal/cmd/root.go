package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Config  string `help:"Path to the YAML config file." default:"configs/config.yaml" type:"path" env:"JOBPOST_CONFIG"`
	JSON    bool   `help:"JSON logs and JSON report on stdout."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `name:"version" help:"Print version."`

	Run     RunCmd     `cmd:"" help:"Drive the browser through a search results view and publish each listing."`
	HTTP    HTTPCmd    `cmd:"" name:"http" help:"Collect listings from the static request/parse source."`
	Secret  SecretCmd  `cmd:"" help:"Manage credentials stored in the OS keyring."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func NewCLI() *CLI {
	return &CLI{}
}
