// gitfs mounts a git repository's refs and historical trees as a
// read-only filesystem.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	gitfuse "github.com/radryc/gitfs/internal/fuse"
	gitstore "github.com/radryc/gitfs/internal/git"
	"github.com/radryc/gitfs/internal/gitfs"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging and FUSE protocol trace")
	allowOther := flag.Bool("allow-other", false, "Allow other users to access the mount")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <repository> <mountpoint>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	repoPath := flag.Arg(0)
	mountpoint := flag.Arg(1)

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	store, err := gitstore.Open(repoPath, logger)
	if err != nil {
		logger.Error("failed to open repository", "path", repoPath, "error", err)
		os.Exit(1)
	}

	engine := gitfs.New(store, logger)

	server, err := gitfuse.Mount(gitfuse.Options{
		Mountpoint: mountpoint,
		Engine:     engine,
		AllowOther: *allowOther,
		Debug:      *debug,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to mount", "mountpoint", mountpoint, "error", err)
		os.Exit(1)
	}

	logger.Info("filesystem mounted", "repository", repoPath, "mountpoint", mountpoint)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, unmounting", "signal", sig)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount error", "error", err)
		}
	}()

	server.Wait()
	logger.Info("filesystem unmounted")
}
