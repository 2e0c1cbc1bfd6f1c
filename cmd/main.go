package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"optiondesk/cmd/seed"
	"optiondesk/cmd/settler"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Optiondesk CMD"
	app.Usage = "The Optiondesk command line interface"

	app.Commands = []cli.Command{
		settlerCMD,
		seedCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	settlerCMD = cli.Command{
		Name:        "settler",
		Usage:       "run the standalone settlement worker",
		Action:      settlerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the settlement loop without the HTTP API`,
	}
	seedCMD = cli.Command{
		Name:        "seed",
		Usage:       "seed demo data",
		Action:      seedAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Provision a demo account, balance and catalogs`,
	}
)

func settlerAction(_ *cli.Context) error {

	logrus.Info("Starting settler CMD")
	logrus.WithField("cmd", "settler")

	worker := &settler.Settler{}
	err := worker.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func seedAction(_ *cli.Context) error {

	logrus.Info("Starting seed CMD")
	logrus.WithField("cmd", "seed")

	seeder := &seed.Seed{}
	err := seeder.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
