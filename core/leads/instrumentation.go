package leads

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-sales/core/leads"

var logger = otelslog.NewLogger(scopeName)
