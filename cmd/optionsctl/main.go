// optionsctl 命令行定价工具，直接调用定价应用服务
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
