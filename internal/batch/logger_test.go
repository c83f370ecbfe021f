package batch_test

import "github.com/okian/epocher/pkg/logger"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}
