package main

import (
	"go.uber.org/fx"

	"github.com/RomanDenysov/kromka-sub000/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
