package hooks

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/akyaiy/rdata-node/internal/core/corestate"
	"github.com/akyaiy/rdata-node/internal/core/run_manager"
	"github.com/akyaiy/rdata-node/internal/core/utils"
	"github.com/akyaiy/rdata-node/internal/engine/app"
	"github.com/akyaiy/rdata-node/internal/engine/config"
	"github.com/akyaiy/rdata-node/internal/engine/logs"
)

var (
	Compositor *config.Compositor     = config.NewCompositor()
	RunManager *run_manager.RunManager = run_manager.New()
)

func setStagePrefix(cs *corestate.CoreState, x *app.AppX, color func(string) string) {
	x.Log.SetPrefix(color(fmt.Sprintf("(%s) ", cs.Stage)))
}

// fatal cleans the runtime directory before exiting.
func fatal(x *app.AppX, format string, args ...any) {
	_ = RunManager.Clean()
	x.Log.Fatalf(format, args...)
}

func Init0Hook(cs *corestate.CoreState, x *app.AppX) {
	x.Config = Compositor
	x.Log.SetOutput(os.Stdout)
	x.Log.SetFlags(log.Ldate | log.Ltime)
	setStagePrefix(cs, x, logs.SetBrightBlack)
}

// First stage: pre-init
func Init1Hook(cs *corestate.CoreState, x *app.AppX) {
	*cs = *corestate.NewCorestate(&corestate.CoreState{
		NodeUUIDDirName:    "uuid",
		NodeBinName:        filepath.Base(os.Args[0]),
		NodeVersion:        config.NodeVersion,
		MetaDir:            config.MetaDir,
		Stage:              corestate.StagePreInit,
		StartTimestampUnix: time.Now().Unix(),
	})
	setStagePrefix(cs, x, logs.SetBlue)
}

func Init2Hook(cs *corestate.CoreState, x *app.AppX) {
	if err := x.Config.LoadEnv(); err != nil {
		x.Log.Fatalf("env load error: %s", err)
	}
	cs.NodePath = *x.Config.Env.NodePath

	if x.Config.CMDLine != nil {
		if cfgPath := x.Config.CMDLine.Run.ConfigPath; cfgPath != "" {
			x.Config.Env.ConfigPath = &cfgPath
		}
	}
	if err := x.Config.LoadConf(*x.Config.Env.ConfigPath); err != nil {
		x.Log.Fatalf("conf load error: %s", err)
	}

	if x.Config.CMDLine != nil && x.Config.CMDLine.Node.Debug {
		debug := "debug"
		x.Config.Conf.Log.Level = &debug
	}
}

func Init3Hook(cs *corestate.CoreState, x *app.AppX) {
	nodeUUID, err := corestate.LoadOrCreateNodeUUID(filepath.Join(cs.NodePath, cs.MetaDir, cs.NodeUUIDDirName))
	if err != nil {
		x.Log.Fatalf("uuid load error: %s", err)
	}
	cs.NodeUUID = nodeUUID
	x.Log.Printf("Node uuid is %s", cs.NodeUUID)
}

// post-init stage
func Init4Hook(cs *corestate.CoreState, x *app.AppX) {
	cs.Stage = corestate.StagePostInit
	setStagePrefix(cs, x, logs.SetYellow)

	runDir, err := RunManager.Create(cs.NodeUUID)
	if err != nil {
		x.Log.Fatalf("Unable to continue node operation: %s", err)
	}
	cs.RunDir = runDir

	srv := x.Config.Conf.HTTPServer
	_, err = RunManager.WriteLock(run_manager.LockInfo{
		PID:       os.Getpid(),
		Version:   cs.NodeVersion,
		NodeUUID:  cs.NodeUUID,
		Address:   fmt.Sprintf("%s:%s", utils.SafeFetch(srv.Address, ""), utils.SafeFetch(srv.Port, "")),
		StartedAt: time.Unix(cs.StartTimestampUnix, 0),
	})
	if err != nil {
		fatal(x, "Unexpected failure: %s", err)
	}
}

func Init5Hook(cs *corestate.CoreState, x *app.AppX) {
	warnings := utils.SafeFetch(x.Config.Conf.DisableWarnings, nil)
	if !slices.Contains(warnings, "--WNonStdTmpDir") && os.TempDir() != "/tmp" {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "Non-standard value specified for temporary directory")
	}
	auth := x.Config.Conf.Auth
	if !slices.Contains(warnings, "--WAnonymous") && utils.SafeFetch(auth.AllowAnonymous, false) {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "Anonymous access is enabled, every connection is authenticated")
	}
	if !slices.Contains(warnings, "--WNoVerifiers") && !utils.SafeFetch(auth.AllowAnonymous, false) &&
		utils.SafeFetch(auth.JWTSecret, "") == "" &&
		len(utils.SafeFetch(auth.APIKeys, nil)) == 0 &&
		(auth.OIDC == nil || utils.SafeFetch(auth.OIDC.Issuer, "") == "") {
		x.Log.Printf("%s: %s", logs.PrintWarn(), "No credentials are configured, clients cannot authenticate")
	}

	if out := utils.SafeFetch(x.Config.Conf.Log.OutPath, ""); strings.Contains(out, "%tmp%") {
		replaced := strings.ReplaceAll(out, "%tmp%", filepath.Clean(RunManager.RuntimeDir()))
		x.Config.Conf.Log.OutPath = &replaced
	}
}

func Init6Hook(cs *corestate.CoreState, x *app.AppX) {
	cs.Stage = corestate.StageReady
	setStagePrefix(cs, x, logs.SetGreen)

	newSlog, err := logs.SetupLogger(x.Config.Conf.Log)
	if err != nil {
		fatal(x, "Unexpected failure: %s", err)
	}
	x.SLog = newSlog.With(slog.String("node.uuid", cs.NodeUUID))

	if utils.SafeFetch(x.Config.Conf.Node.ShowConfig, false) {
		fmt.Fprintln(os.Stdout, "Configuration:")
		x.Config.Print(os.Stdout, x.Config.Conf)
	}
}
