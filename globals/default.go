package globals

import "github.com/hashicorp/go-hclog"

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "gift-circle",
	Level: hclog.LevelFromString("DEBUG"),
})
