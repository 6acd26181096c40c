package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var createoffer = cli.Command{
	Name:  "create",
	Usage: "create a new swap offer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "maker",
			Usage:    "the address creating the offer",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "taker",
			Usage: "restrict the offer to this counterparty address",
		},
		&cli.StringFlag{
			Name:     "source_asset",
			Usage:    "the asset hash offered by the maker",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "source_amount",
			Usage:    "the total amount of source asset offered",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "counter_asset",
			Usage:    "the asset hash wanted by the maker",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "counter_amount",
			Usage:    "the total amount of counter asset wanted",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "fee_per_fill",
			Usage: "the native-asset fee charged to the taker on each fill",
		},
		&cli.BoolFlag{
			Name:  "partial",
			Usage: "allow the offer to be filled in multiple takes",
		},
		&cli.Int64Flag{
			Name:  "expires_at",
			Usage: "unix timestamp after which the offer expires, 0 means never",
		},
		&cli.StringFlag{
			Name:  "value",
			Usage: "the native value attached to the call",
		},
	},
	Action: createOfferAction,
}

func createOfferAction(ctx *cli.Context) error {
	res, err := postRequest(ctx, "/v1/offers", map[string]interface{}{
		"makerAddress":       ctx.String("maker"),
		"takerAddress":       ctx.String("taker"),
		"sourceAsset":        ctx.String("source_asset"),
		"sourceAmountTotal":  ctx.String("source_amount"),
		"counterAsset":       ctx.String("counter_asset"),
		"counterAmountTotal": ctx.String("counter_amount"),
		"feeAmountPerFill":   ctx.String("fee_per_fill"),
		"partialFillAllowed": ctx.Bool("partial"),
		"expiresAt":          ctx.Int64("expires_at"),
		"attachedValue":      ctx.String("value"),
	})
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}

var takeoffer = cli.Command{
	Name:  "take",
	Usage: "take an offer, fully or partially",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "hash",
			Usage:    "the hash of the offer to take",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "caller",
			Usage:    "the taker address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "counter_amount",
			Usage:    "the counter amount to fill",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "value",
			Usage: "the native value attached to the call",
		},
	},
	Action: takeOfferAction,
}

func takeOfferAction(ctx *cli.Context) error {
	path := fmt.Sprintf("/v1/offers/%s/take", ctx.String("hash"))
	res, err := postRequest(ctx, path, map[string]interface{}{
		"callerAddress": ctx.String("caller"),
		"counterAmount": ctx.String("counter_amount"),
		"attachedValue": ctx.String("value"),
	})
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}

var canceloffer = cli.Command{
	Name:  "cancel",
	Usage: "cancel an own offer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "hash",
			Usage:    "the hash of the offer to cancel",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "caller",
			Usage:    "the maker address",
			Required: true,
		},
	},
	Action: cancelOfferAction,
}

func cancelOfferAction(ctx *cli.Context) error {
	path := fmt.Sprintf("/v1/offers/%s/cancel", ctx.String("hash"))
	res, err := postRequest(ctx, path, map[string]interface{}{
		"callerAddress": ctx.String("caller"),
	})
	if err != nil {
		return err
	}

	printResponse(res)
	return nil
}
