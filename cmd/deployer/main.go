package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"token-deployer-sol/internal/config"
	"token-deployer-sol/internal/logic/token"
	"token-deployer-sol/internal/pkg/logger"
	"token-deployer-sol/internal/svc"
)

var configFile = flag.String("f", "etc/deployer.yaml", "the config file")

const usage = `usage: deployer [-f etc/deployer.yaml] <command> [flags]

commands:
  deploy            [--supply N] [--decimals D] [--force]
  add-metadata      --name NAME --symbol SYMBOL --uri URI
  update-metadata   [--name NAME] [--symbol SYMBOL] [--uri URI]
  distribute        <receiver> <amount>
  show              [--onchain] [--format json|yaml]
  check             <command>
`

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 1
		}
	}()

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 1
	}

	c, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *configFile, err)
		return 1
	}
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// SIGINT 取消根 context；已经发出的交易仍可能上链
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc, err := svc.NewRuntimeContext(c, svc.Options{})
	if err != nil {
		logger.Errorf("[Main] 初始化失败: %v", err)
		return 1
	}
	defer rc.Close()
	defer func() {
		if err := rc.Metrics.WriteTextfile(c.Metrics.Textfile); err != nil {
			logger.Warnf("[Main] 写出指标失败: %v", err)
		}
	}()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := dispatch(ctx, token.NewService(rc, os.Stdout), cmd, args); err != nil {
		logger.Errorf("[Main] %s 失败: %v", cmd, err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, s *token.Service, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	switch cmd {
	case token.CmdDeploy:
		supply := fs.String("supply", "", "initial supply in whole tokens, 0 to skip minting")
		decimals := fs.Uint("decimals", 0, "mint decimals (default from config)")
		force := fs.Bool("force", false, "deploy a new mint even if token-info.json already has one")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p := token.DeployParams{Supply: *supply, Force: *force}
		if isFlagSet(fs, "decimals") {
			if *decimals > 255 {
				return fmt.Errorf("--decimals %d out of range", *decimals)
			}
			d := uint8(*decimals)
			p.Decimals = &d
		}
		_, err := s.Deploy(ctx, p)
		return err

	case token.CmdAddMetadata, token.CmdUpdateMetadata:
		name := fs.String("name", "", "token name (<= 32 bytes)")
		symbol := fs.String("symbol", "", "token symbol (<= 10 bytes)")
		uri := fs.String("uri", "", "metadata json uri")
		if err := fs.Parse(args); err != nil {
			return err
		}
		in := token.MetadataInput{Name: *name, Symbol: *symbol, URI: *uri}
		var err error
		if cmd == token.CmdAddMetadata {
			_, err = s.AddMetadata(ctx, in)
		} else {
			_, err = s.UpdateMetadata(ctx, in)
		}
		return err

	case token.CmdDistribute:
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: distribute <receiver> <amount>")
		}
		_, err := s.Distribute(ctx, fs.Arg(0), fs.Arg(1))
		return err

	case token.CmdShow:
		onchain := fs.Bool("onchain", false, "also decode the on-chain metadata account")
		format := fs.String("format", token.FormatJSON, "output format: json | yaml")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return s.Show(ctx, token.ShowParams{OnChain: *onchain, Format: *format})

	case "check":
		if len(args) != 1 {
			return fmt.Errorf("usage: check <%s>", strings.Join(token.Commands, "|"))
		}
		return s.Check(ctx, args[0])

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
