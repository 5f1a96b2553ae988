package main

import (
	"attribution/cmd"
	"os"

	"go.uber.org/zap"
)

func main() {
	log := zap.S()
	log.Infof("commit %s", os.Getenv("commit_hash"))

	cfg, err := cmd.LoadConfig("")
	if err != nil {
		log.Fatal(err)
	}
	deps, err := cmd.InitializeDependencies(cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(deps)

	if err := deps.ApiHandler.StartApi(cfg.Port); err != nil {
		log.Fatal(err)
	}
}
