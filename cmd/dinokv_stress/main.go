package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"dinokv/pkg/catalog"
	"dinokv/pkg/disk"
)

var startupDelay = 100 * time.Millisecond

const maxJitterMillis = 10

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

func jitter() time.Duration {
	return time.Duration(rand.Int63n(maxJitterMillis)+1) * time.Millisecond
}

func parseWorkload(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var workload []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		workload = append(workload, scanner.Text())
	}
	return workload, scanner.Err()
}

func handleWorkload(c chan string, wg *sync.WaitGroup, workload []string, idx, n int) {
	defer wg.Done()
	for i := idx; i < len(workload); i += n {
		time.Sleep(jitter())
		c <- workload[i]
	}
}

// Drives a workload file against a fresh table through concurrent REPL
// clients, to exercise the buffer pool and B+Tree index under contention.
func main() {
	indexFlag := flag.String("index", "", "choose index kind: [btree,hash] (required)")
	workloadFlag := flag.String("workload", "", "workload file (required)")
	nFlag := flag.Int("n", 1, "number of concurrent workload threads")
	verifyFlag := flag.Bool("verify", false, "verify the index's structural invariants at the end of the workload")
	flag.Parse()

	os.Remove("./data/stress.db")
	dm, err := disk.NewFileManager("./data/stress.db")
	if err != nil {
		panic(err)
	}
	c, err := catalog.Open(dm, 0, 0, nil)
	if err != nil {
		panic(err)
	}
	defer c.Close()
	setupCloseHandler(c)

	r := catalog.Repl(c)
	ch := make(chan string)
	go r.RunChan(ch, uuid.New(), "")
	time.Sleep(startupDelay)

	switch *indexFlag {
	case "btree":
		ch <- "create btree table t"
	case "hash":
		ch <- "create hash table t"
	default:
		fmt.Println("must specify -index [btree,hash]")
		return
	}

	if *workloadFlag == "" {
		fmt.Println("no workload file given")
		return
	}
	workload, err := parseWorkload(*workloadFlag)
	if err != nil {
		fmt.Println(err)
		return
	}
	time.Sleep(startupDelay)

	var wg sync.WaitGroup
	for i := 0; i < *nFlag; i++ {
		wg.Add(1)
		go handleWorkload(ch, &wg, workload, i, *nFlag)
	}
	wg.Wait()

	if *verifyFlag {
		table, err := c.OpenIndex("t")
		if err != nil {
			fmt.Println("error getting table t:", err)
			return
		}
		if err := catalog.VerifyInvariants(table); err != nil {
			fmt.Println("invariant violation:", err)
			return
		}
		fmt.Println("index invariants hold")
	}
}
