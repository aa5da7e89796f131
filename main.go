package main

import "github.com/ufrutov/gitlab-client/cmd"

func main() {
	cmd.Execute()
}
