package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// newClient builds a resty client against the configured service.
func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json")
	if keyFlag != "" {
		c.SetAuthToken(keyFlag)
	}
	return c
}

// expectStatus turns transport errors and unexpected statuses into one error.
func expectStatus(resp *resty.Response, err error, want int) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() != want {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// printJSON pretty-prints a raw JSON response body to stdout.
func printJSON(data []byte) {
	var buf bytes.Buffer
	if json.Indent(&buf, data, "", "  ") != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}
