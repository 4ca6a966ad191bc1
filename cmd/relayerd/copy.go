package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tapfed/relayerd/internal/config"
	"github.com/tapfed/relayerd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var roundFlag = &cli.Uint64Flag{
	Name:     "round",
	Usage:    "round id whose cipher records to copy",
	Required: true,
}

var copyCmd = &cli.Command{
	Name:   "copy",
	Usage:  "mirror the cipher records of a single round and exit",
	Flags:  append([]cli.Flag{roundFlag}, config.Flags...),
	Action: runCopy,
}

func runCopy(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	svc, err := cfg.AppService()
	if err != nil {
		return fmt.Errorf("failed to create service: %s", err)
	}

	roundId := c.Uint64(roundFlag.Name)
	outcomes, err := svc.CopyRound(c.Context, roundId)
	if err != nil {
		return err
	}

	for _, outcome := range outcomes {
		if outcome.Status == domain.MirrorStatusPosted {
			log.Infof("[%d] %s %s tx %s",
				outcome.Index, outcome.Status, outcome.Cid, outcome.TxHash.Hex())
			continue
		}
		log.Infof("[%d] %s %s", outcome.Index, outcome.Status, outcome.Cid)
	}

	return nil
}
