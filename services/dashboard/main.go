package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/iulianpascalau/matomo-dashboard/commonGo"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/matomo-dashboard/services/dashboard/factory"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/urfave/cli"
)

const (
	defaultLogsPath      = "logs"
	logFilePrefix        = "dashboard"
	logFileLifeSpanInSec = 86400 // 24h
	logFileLifeSpanInMB  = 1024  // 1GB
	envAdminPassword     = "ADMIN_PASSWORD"
	envMatomoTokenAuth   = "MATOMO_TOKEN_AUTH"
)

// appVersion should be populated at build time using ldflags
// Usage examples:
// Linux/macOS:
//
//	go build -v -ldflags="-X main.appVersion=$(git describe --all | cut -c7-32)
var appVersion = "undefined"
var fileLogging commonGo.FileLoggingHandler

var (
	helpTemplate = `NAME:
   {{.Name}} - {{.Usage}}
USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}
   {{if len .Authors}}
AUTHOR:
   {{range .Authors}}{{ . }}{{end}}
   {{end}}{{if .Commands}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}
VERSION:
   {{.Version}}
   {{end}}
`

	log = logger.GetOrCreate("main")

	// logLevel defines the logger level
	logLevel = cli.StringFlag{
		Name: "log-level",
		Usage: "This flag specifies the logger `level(s)`. It can contain multiple comma-separated value. For example" +
			", if set to *:INFO the logs for all packages will have the INFO level. However, if set to *:INFO,api:DEBUG" +
			" the logs for all packages will have the INFO level, excepting the api package which will receive a DEBUG" +
			" log level.",
		Value: "*:" + logger.LogInfo.String(),
	}
	// logFile is used when the log output needs to be logged in a file
	logSaveFile = cli.BoolFlag{
		Name:  "log-save",
		Usage: "Boolean option for enabling log saving. If set, it will automatically save all the logs into a file.",
	}
	// workingDirectory defines a flag for the path for the working directory.
	workingDirectory = cli.StringFlag{
		Name:  "working-directory",
		Usage: "This flag specifies the `directory` where the service will store its logs.",
		Value: "",
	}
	// configFile defines the path to the TOML configuration file
	configFile = cli.StringFlag{
		Name:  "config",
		Usage: "The `filepath` of the main TOML configuration file.",
		Value: "./config.toml",
	}
	// envFile defines the path to the file holding the secrets
	envFile = cli.StringFlag{
		Name:  "env-file",
		Usage: "The `filepath` of the .env file holding the admin password and, optionally, the Matomo token.",
		Value: "./.env",
	}

	envFileContents = map[string]string{
		envAdminPassword:   "",
		envMatomoTokenAuth: "",
	}
)

func main() {
	app := cli.NewApp()
	cli.AppHelpTemplate = helpTemplate
	app.Name = "Matomo realtime dashboard service"
	app.Version = fmt.Sprintf("%s/%s/%s-%s", appVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	app.Usage = "This is the entry point for starting the caching proxy serving the Matomo realtime dashboard"
	app.Flags = []cli.Flag{
		logLevel,
		logSaveFile,
		workingDirectory,
		configFile,
		envFile,
	}
	app.Authors = []cli.Author{
		{
			Name:  "Iulian Pascalau",
			Email: "iulian.pascalau@gmail.com",
		},
	}

	app.Action = run

	defer func() {
		if fileLogging != nil {
			_ = fileLogging.Close()
		}
	}()

	err := app.Run(os.Args)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	saveLogFile := ctx.GlobalBool(logSaveFile.Name)
	workingDir := ctx.GlobalString(workingDirectory.Name)

	err := logger.SetLogLevel(ctx.GlobalString(logLevel.Name))
	if err != nil {
		return err
	}

	fileLogging, err = commonGo.AttachFileLogger(log, defaultLogsPath, logFilePrefix, saveLogFile, workingDir)
	if err != nil {
		return err
	}

	if !check.IfNil(fileLogging) {
		timeLogLifeSpan := time.Second * time.Duration(logFileLifeSpanInSec)
		sizeLogLifeSpanInMB := uint64(logFileLifeSpanInMB)
		err = fileLogging.ChangeFileLifeSpan(timeLogLifeSpan, sizeLogLifeSpanInMB)
		if err != nil {
			return err
		}
	}

	log.Info("Starting dashboard service", "version", appVersion, "pid", os.Getpid())

	err = commonGo.ReadEnvFile(ctx.GlobalString(envFile.Name), envFileContents, envMatomoTokenAuth)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(ctx.GlobalString(configFile.Name))
	if err != nil {
		return err
	}
	if len(envFileContents[envMatomoTokenAuth]) > 0 {
		cfg.Upstream.TokenAuth = envFileContents[envMatomoTokenAuth]
	}

	settings, err := config.LoadSettings(cfg.Admin.SettingsFile)
	if err != nil {
		return err
	}

	components, err := factory.NewComponentsHandler(factory.ArgsComponentsHandler{
		Config:        *cfg,
		Settings:      settings,
		AdminPassword: envFileContents[envAdminPassword],
	})
	if err != nil {
		return err
	}

	components.Start()

	log.Info("Dashboard service started", "address", components.GetServer().Address(), "cache", cfg.Cache.Backend)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	<-sigs

	log.Info("Application closing, calling Close on all subcomponents...")
	components.Close()

	return nil
}
