package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"earnapp"

	"github.com/joho/godotenv"
)

const usage = `Usage:
  earnapp <endpoint> [key=value ...]
  earnapp device <endpoint> version=<v> arch=<arch> appid=<id> [uuid=<device>]
  earnapp batch <tokens-file> <endpoint> <worker-count> [key=value ...]

Dashboard endpoints: %s
Device endpoints:    %s

EARNAPP_TOKEN, EARNAPP_PROXY, EARNAPP_PROXY_FILE and EARNAPP_TIMEOUT are read
from the environment or a .env file.`

var engineLog *log.Logger

func main() {
	if len(os.Args) < 2 {
		fatalUsage()
	}

	logFile := setupLogging()
	defer logFile.Close()

	_ = godotenv.Load()

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "device":
		err = runDevice(ctx, os.Args[2:])
	case "batch":
		err = runBatch(ctx, os.Args[2:])
	default:
		err = runDashboard(ctx, os.Args[1], os.Args[2:])
	}

	if err != nil {
		if earnapp.IsTransient(err) {
			engineLog.Printf("Transient failure, try again later: %v", err)
		} else {
			engineLog.Printf("Error: %v", err)
		}
		os.Exit(1)
	}
}

func fatalUsage() {
	log.Fatalf(usage,
		strings.Join(earnapp.Endpoints(earnapp.APIDashboard), ", "),
		strings.Join(earnapp.Endpoints(earnapp.APIDeviceClient), ", "))
}

func setupLogging() *os.File {
	logFile, err := os.OpenFile("earnapp.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	// Stdout carries results only.
	engineLog = log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)
	return logFile
}

// parseArgs turns key=value pairs into endpoint arguments.
func parseArgs(pairs []string) (earnapp.Args, error) {
	args := earnapp.Args{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func sessionConfig() earnapp.Config {
	return earnapp.Config{
		Proxy:   GetProxy(),
		Timeout: GetTimeout(),
		Logger:  &earnapp.StdLogger{Logger: engineLog},
	}
}

func runDashboard(ctx context.Context, endpoint string, pairs []string) error {
	args, err := parseArgs(pairs)
	if err != nil {
		return err
	}

	token := GetToken()
	if token == "" {
		return errors.New("EARNAPP_TOKEN is not set")
	}

	session, err := earnapp.NewSession(sessionConfig())
	if err != nil {
		return err
	}

	if err := session.Login(ctx, token, earnapp.AuthMethodGoogle); err != nil {
		return err
	}

	result, err := session.Call(ctx, endpoint, args)
	if err != nil {
		return err
	}
	return printResult(result)
}

func runDevice(ctx context.Context, rest []string) error {
	if len(rest) < 1 {
		fatalUsage()
	}

	args, err := parseArgs(rest[1:])
	if err != nil {
		return err
	}

	client, err := earnapp.NewDeviceClient(earnapp.DeviceConfig{
		UUID:    args["uuid"],
		Version: args["version"],
		Arch:    args["arch"],
		AppID:   args["appid"],
		Proxy:   GetProxy(),
		Timeout: GetTimeout(),
		Logger:  &earnapp.StdLogger{Logger: engineLog},
	})
	if err != nil {
		return err
	}

	result, err := client.Call(ctx, rest[0])
	if err != nil {
		return err
	}
	return printResult(result)
}

func runBatch(ctx context.Context, rest []string) error {
	if len(rest) < 3 {
		fatalUsage()
	}

	tasks, err := loadTasks(rest[0])
	if err != nil {
		return err
	}

	endpoint := rest[1]
	workerCount, err := strconv.Atoi(rest[2])
	if err != nil || workerCount <= 0 {
		return errors.New("worker-count must be a positive integer")
	}

	args, err := parseArgs(rest[3:])
	if err != nil {
		return err
	}

	var proxyManager *earnapp.ProxyManager
	if file := GetProxyFile(); file != "" {
		proxyManager, err = earnapp.NewProxyManager(file)
		if err != nil {
			return err
		}
		engineLog.Printf("Loaded %d proxies", proxyManager.Count())
	}

	scheduler := earnapp.NewScheduler(workerCount, sessionConfig(), proxyManager, 0, &earnapp.StdLogger{Logger: engineLog})
	engineLog.Printf("Running %s for %d accounts on %d workers", endpoint, len(tasks), scheduler.WorkerCount())
	scheduler.Start(ctx, endpoint, args)

	go func() {
		for _, task := range tasks {
			scheduler.Submit(task)
		}
		scheduler.Close()
	}()

	output := map[string]any{}
	failed := 0
	for result := range scheduler.Results() {
		if result.Error != nil {
			failed++
			output[result.Label] = map[string]string{"error": result.Error.Error()}
			continue
		}
		output[result.Label] = result.Result.Value
	}

	if err := printJSON(output); err != nil {
		return err
	}
	engineLog.Printf("=== Complete: %d ok, %d failed ===", len(tasks)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(tasks))
	}
	return nil
}

// loadTasks reads one account per line: either "token" or "label token".
func loadTasks(filename string) ([]earnapp.Task, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open tokens file: %w", err)
	}
	defer file.Close()

	var tasks []earnapp.Task
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		task := earnapp.Task{Method: earnapp.AuthMethodGoogle}
		if len(fields) >= 2 {
			task.Label, task.Token = fields[0], fields[1]
		} else {
			task.Label, task.Token = fmt.Sprintf("account-%d", len(tasks)+1), fields[0]
		}
		tasks = append(tasks, task)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading tokens file: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tokens found in %s", filename)
	}
	return tasks, nil
}

func printResult(result *earnapp.Result) error {
	if result.Raw == nil {
		fmt.Println(result.Text)
		return nil
	}
	return printJSON(result.Value)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
