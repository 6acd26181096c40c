package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var getoffer = cli.Command{
	Name:  "get",
	Usage: "show an offer with its derived status and fills",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "hash",
			Usage:    "the hash of the offer",
			Required: true,
		},
	},
	Action: getOfferAction,
}

func getOfferAction(ctx *cli.Context) error {
	res, err := getRequest(ctx, "/v1/offers/"+ctx.String("hash"))
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}

var listoffers = cli.Command{
	Name:  "list",
	Usage: "list offers by maker or restricted taker",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "maker",
			Usage: "list offers created by this address",
		},
		&cli.StringFlag{
			Name:  "taker",
			Usage: "list offers reserved for this address",
		},
	},
	Action: listOffersAction,
}

func listOffersAction(ctx *cli.Context) error {
	var path string
	switch {
	case ctx.String("maker") != "":
		path = fmt.Sprintf("/v1/offers?maker=%s", url.QueryEscape(ctx.String("maker")))
	case ctx.String("taker") != "":
		path = fmt.Sprintf("/v1/offers?taker=%s", url.QueryEscape(ctx.String("taker")))
	default:
		return fmt.Errorf("either maker or taker flag is required")
	}

	res, err := getRequest(ctx, path)
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}

var listfills = cli.Command{
	Name:  "fills",
	Usage: "list the fill history of a taker",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "taker",
			Usage:    "the taker address",
			Required: true,
		},
	},
	Action: listFillsAction,
}

func listFillsAction(ctx *cli.Context) error {
	path := fmt.Sprintf("/v1/fills?taker=%s", url.QueryEscape(ctx.String("taker")))
	res, err := getRequest(ctx, path)
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}
