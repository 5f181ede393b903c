package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DavidGamba/go-getoptions"
	"github.com/cyverse-de/configurate"
	"github.com/sirupsen/logrus"

	"github.com/saudijob/jobboard/agent"
)

const serviceName = "jobboard-agent"

var log = logrus.WithFields(logrus.Fields{"service": serviceName})

// defaultConfig contains the default values for every configuration setting the
// agent uses.
const defaultConfig = `
api:
  base: http://localhost:8080

data:
  dir: ""

poll:
  interval: 15s

reconcile:
  interval: 90s
`

// commandLineOptionValues represents the values of the command-line options that were passed on the command line when
// this service was invoked.
type commandLineOptionValues struct {
	Config string
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	// Default option values.
	defaultConfigPath := "/etc/saudijob/jobboard-agent.yml"

	// Define the command-line options.
	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&optionValues.Config, "config", defaultConfigPath,
		opt.Alias("c"),
		opt.Description("the path to the configuration file"))

	// Parse the command line, handling requests for help and usage errors.
	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprintf(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprintf(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(1)
	}

	return optionValues
}

func main() {
	// Parse the command-line.
	optionValues := parseCommandLine()

	// Initialize logging.
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Read in the configuration file.
	cfg, err := configurate.InitDefaults(optionValues.Config, defaultConfig)
	if err != nil {
		log.Fatal(err)
	}

	// Assemble and start the agent.
	jobAgent := agent.New(&agent.Settings{
		APIBaseURL:        cfg.GetString("api.base"),
		DataDir:           cfg.GetString("data.dir"),
		PollInterval:      cfg.GetDuration("poll.interval"),
		ReconcileInterval: cfg.GetDuration("reconcile.interval"),
	}, nil)
	jobAgent.Start()
	defer jobAgent.Close()

	// Wait for a shutdown signal.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}
