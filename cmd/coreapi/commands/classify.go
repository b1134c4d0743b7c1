package commands

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/paycore/internal/constants"
	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

// Classification is the result of classifying a response.
type Classification struct {
	StatusCode int        `json:"status_code"     yaml:"status_code"`
	Outcome    string     `json:"outcome"         yaml:"outcome"`
	Error      *ErrorInfo `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify STATUS [BODY]",
		Short: "Classify an API response",
		Long: `Classify an HTTP status and response body the way the SDK does.

The body is read from standard input when it is not given as an argument.`,
		Example: `  coreapi classify 500 '{"error":"technical_error","next_retry":3000}'
  coreapi classify 400 '{"error":"illegal_param_amount"}'`,
		Args: cobra.RangeArgs(1, constants.SetArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := strconv.Atoi(args[0])
			if err != nil || status < 100 || status > 599 {
				return fmt.Errorf("%w: %s", constants.ErrInvalidStatusCode, args[0])
			}

			var body []byte

			if len(args) > 1 {
				body = []byte(args[1])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read body: %w", err)
				}
			}

			result := Classify(status, body)

			return writeOutput(cmd.OutOrStdout(), result, func(table *tablewriter.Table) error {
				rows := [][]string{
					{"Status", fmt.Sprintf("%d %s", result.StatusCode, http.StatusText(result.StatusCode))},
					{"Outcome", result.Outcome},
				}

				if result.Error != nil {
					rows = append(rows, errorRows(result.Error)...)
				}

				return appendRows(table, rows)
			})
		},
	}
}

// Classify applies the response rules to a status and body without decoding
// a success value.
func Classify(status int, body []byte) Classification {
	result := Classification{StatusCode: status}

	err := coreapi.ClassifyStatus(status, body)
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = &coreapi.SerializationError{StatusCode: status, Text: strings.TrimSpace(string(body))}
	}

	if err == nil {
		result.Outcome = "success"

		return result
	}

	result.Outcome = "error"
	result.Error = describeError(err)

	return result
}
