package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// newRequestCmd builds one of the get, delete, post and put commands.
// They print the data of a successful response as indented JSON.
func newRequestCmd(a *app, verb string) *cobra.Command {
	var (
		query []string
		form  []string
		data  string
	)

	cmd := &cobra.Command{
		Use:   verb + " <path>",
		Short: fmt.Sprintf("Send an authenticated %s request", strings.ToUpper(verb)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			var (
				resp json.RawMessage
				err  error
			)
			switch verb {
			case "get", "delete":
				params, perr := parsePairs(query)
				if perr != nil {
					return perr
				}
				if verb == "get" {
					resp, err = a.client.Get(ctx, path, params)
				} else {
					resp, err = a.client.Delete(ctx, path, params)
				}
			case "post", "put":
				if len(form) > 0 {
					if data != "" {
						return fmt.Errorf("--data and --form are exclusive")
					}
					if verb == "put" {
						return fmt.Errorf("--form is only supported by post")
					}
					values, perr := parsePairs(form)
					if perr != nil {
						return perr
					}
					resp, err = a.client.PostForm(ctx, path, values)
					break
				}
				var body any
				if data != "" {
					if !json.Valid([]byte(data)) {
						return fmt.Errorf("--data is not valid JSON")
					}
					body = json.RawMessage(data)
				}
				if verb == "post" {
					resp, err = a.client.Post(ctx, path, body)
				} else {
					resp, err = a.client.Put(ctx, path, body)
				}
			}
			if err != nil {
				return err
			}
			return printData(a, resp)
		},
	}

	switch verb {
	case "get", "delete":
		cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter key=value (repeatable)")
	case "post", "put":
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
		if verb == "post" {
			cmd.Flags().StringArrayVarP(&form, "form", "f", nil, "Form field key=value (repeatable)")
		}
	}
	return cmd
}

func parsePairs(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q: want key=value", p)
		}
		values.Add(k, v)
	}
	return values, nil
}

func printData(a *app, data json.RawMessage) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// Not JSON after all; print as received.
		_, err = a.out.Write(append(data, '\n'))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(a.out)
	return err
}
