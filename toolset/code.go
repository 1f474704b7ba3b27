package toolset

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/tool"
)

type codeArgs struct {
	Title string `json:"title" description:"The title of the code snippet."`
	Code  string `json:"code" description:"The Python code to execute. put the variables in the end of the code to print them. do not use the print function."`
	Icon  string `json:"icon" enum:"stock,date,calculation,default" description:"The icon to display for the code snippet."`
}

// CodeOutput is the result of code_interpreter and stock_chart.
type CodeOutput struct {
	Message string          `json:"message"`
	Chart   json.RawMessage `json:"chart,omitempty"`
}

func (ts *Toolset) codeInterpreter() tool.Tool {
	return ts.codeTool(CodeInterpreter, "Write and execute Python code.")
}

func (ts *Toolset) stockChart() tool.Tool {
	return ts.codeTool(StockChart, "Write and execute Python code to find stock data and generate a stock chart.")
}

func (ts *Toolset) codeTool(name, description string) tool.Tool {
	return tool.NewTypedTool(name, description, func(tc *core.ToolContext, args codeArgs) (any, error) {
		if ts.c.Sandbox == nil {
			return nil, notConfigured(name, "SANDBOX_API_KEY")
		}
		tc.Logger().Debug("tool.code.run", "tool", name, "title", args.Title, "icon", args.Icon, "code_bytes", len(args.Code))
		exec, err := ts.c.Sandbox.RunCode(tc.Context(), args.Code)
		if err != nil {
			return nil, err
		}
		return CodeOutput{Message: exec.Message(), Chart: exec.Chart()}, nil
	})
}

type currencyArgs struct {
	From   string  `json:"from" description:"The source currency code."`
	To     string  `json:"to" description:"The target currency code."`
	Amount float64 `json:"amount,omitempty" default:"1" description:"The amount to convert."`
}

// CurrencyOutput is the currency_converter result. Converted is set when the
// rate parses as a number.
type CurrencyOutput struct {
	Rate      string   `json:"rate"`
	Amount    float64  `json:"amount"`
	Converted *float64 `json:"converted,omitempty"`
}

var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

const rateProgram = `import yfinance as yf
from_currency = '%s'
to_currency = '%s'
currency_pair = f'{from_currency}{to_currency}=X'
data = yf.Ticker(currency_pair).history(period='1d')
latest_rate = data['Close'].iloc[-1]
latest_rate
`

func (ts *Toolset) currencyConverter() tool.Tool {
	return tool.NewTypedTool(CurrencyConverter, "Convert currency from one to another using yfinance",
		func(tc *core.ToolContext, args currencyArgs) (any, error) {
			if ts.c.Sandbox == nil {
				return nil, notConfigured(CurrencyConverter, "SANDBOX_API_KEY")
			}
			if !currencyCode.MatchString(args.From) || !currencyCode.MatchString(args.To) {
				return nil, invalidArgs(CurrencyConverter, "currency codes must be three letters")
			}
			from, to := strings.ToUpper(args.From), strings.ToUpper(args.To)

			exec, err := ts.c.Sandbox.RunCode(tc.Context(), fmt.Sprintf(rateProgram, from, to))
			if err != nil {
				return nil, err
			}
			out := CurrencyOutput{Rate: exec.Message(), Amount: args.Amount}
			if exec.Error == nil {
				if rate, err := strconv.ParseFloat(out.Rate, 64); err == nil {
					converted := rate * args.Amount
					out.Converted = &converted
				}
			}
			return out, nil
		})
}
