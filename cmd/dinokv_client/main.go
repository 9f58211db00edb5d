package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"

	"dinokv/pkg/config"
)

func mustCopy(dst io.Writer, src io.Reader) {
	if _, err := io.Copy(dst, src); err != nil {
		log.Fatal(err)
	}
}

// Connect to a dinokv server and pipe stdin/stdout over the connection.
func main() {
	port := flag.Int("p", 0, "port number")
	flag.Parse()
	if *port == 0 {
		fmt.Println("usage: ./" + config.DBName + "_client -p <port>")
		return
	}
	conn, err := net.Dial("tcp", fmt.Sprintf(":%v", *port))
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	go mustCopy(os.Stdout, conn)
	mustCopy(conn, os.Stdin)
}
