package main

import (
	"fmt"

	"github.com/quickroom/room-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
