package conversations

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-sales/core/conversations"

var logger = otelslog.NewLogger(scopeName)
