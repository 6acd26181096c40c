package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "swap CLI"
	app.Usage = "Command line interface for the swapd daemon"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "rpcserver",
			Usage: "the address of the swapd http interface",
			Value: "http://localhost:9945",
		},
	}
	app.Commands = append(
		app.Commands,
		&createoffer,
		&takeoffer,
		&canceloffer,
		&getoffer,
		&listoffers,
		&listfills,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swap] %v\n", err)
	os.Exit(1)
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

func postRequest(ctx *cli.Context, path string, body interface{}) (string, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Post(
		ctx.String("rpcserver")+path, "application/json", bytes.NewReader(buf),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return handleResponse(resp)
}

func getRequest(ctx *cli.Context, path string) (string, error) {
	resp, err := httpClient.Get(ctx.String("rpcserver") + path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return handleResponse(resp)
}

func handleResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, data)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return string(data), nil
	}
	return indented.String(), nil
}

func printResponse(res string) {
	fmt.Println(res)
}
