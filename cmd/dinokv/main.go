package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"dinokv/pkg/catalog"
	"dinokv/pkg/config"
	"dinokv/pkg/disk"
	"dinokv/pkg/repl"
	"dinokv/pkg/txn"
	"dinokv/pkg/walog"
)

const defaultPort = 8335 // BEES

func setupCloseHandler(c *catalog.Catalog) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("closehandler invoked")
		c.Close()
		os.Exit(0)
	}()
}

func startServer(r *repl.REPL, tm *txn.TransactionManager, prompt string, port int) {
	handleConn := func(conn net.Conn) {
		clientID := uuid.New()
		defer conn.Close()
		if tm != nil {
			defer tm.Commit(clientID)
		}
		r.Run(clientID, prompt, conn, conn)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v server started listening on localhost:%v\n", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go handleConn(conn)
	}
}

func main() {
	promptFlag := flag.Bool("c", true, "use prompt?")
	dbFlag := flag.String("db", "data/dinokv.db", "path to the database file")
	logFlag := flag.String("log", "", "path to the write-ahead log file (disabled if empty)")
	txnFlag := flag.Bool("txn", false, "enable transactions and serve over TCP instead of stdio")
	portFlag := flag.Int("p", defaultPort, "port number, only used with -txn")
	poolFlag := flag.Int("pool", 0, "buffer pool size, in frames (0 picks the default)")
	flag.Parse()

	if dir := filepath.Dir(*dbFlag); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			log.Fatal(err)
		}
	}
	dm, err := disk.NewFileManager(*dbFlag)
	if err != nil {
		log.Fatal(err)
	}

	var log_ *walog.Log
	if *logFlag != "" {
		log_, err = walog.Open(*logFlag)
		if err != nil {
			log.Fatal(err)
		}
		defer log_.Close()
	}

	c, err := catalog.Open(dm, *poolFlag, 0, log_)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()
	setupCloseHandler(c)

	prompt := config.GetPrompt(*promptFlag)

	if *txnFlag {
		lm := txn.NewResourceLockManager()
		tm := txn.NewTransactionManager(lm)
		startServer(txn.Repl(c, tm), tm, prompt, *portFlag)
		return
	}

	catalog.Repl(c).Run(uuid.New(), prompt, nil, nil)
}
