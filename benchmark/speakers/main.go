package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/db"
	energyGrpc "liyu1981.xyz/speaker-energy-service/pkg/grpc"
	"liyu1981.xyz/speaker-energy-service/pkg/models"
)

var maxSpeakers int = 500
var samplesPerSession int = 6
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

// the benchmark seeds speakers and users straight into the server's sqlite file
var dbPath string = "./data/energy.db"

var grpcClient *energyGrpc.TelemetryServiceClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndLock sync.Mutex

var failures atomic.Int64

type seeded struct {
	speakerID uint
	userID    uint
	battery   float64
}

func main() {
	if path, found := os.LookupEnv(common.EnvKeyDbPath); found {
		dbPath = path
	}

	database := db.GetInstance(db.UseSqliteDialectorAt(dbPath))
	speakers := make([]seeded, maxSpeakers)
	for i := range maxSpeakers {
		speaker := &models.Speaker{Name: "bench-" + uuid.NewString()[:8], Position: "benchmark", BatteryPercentage: 100}
		if err := database.Conn.Create(speaker).Error; err != nil {
			log.Fatal("Failed to seed speaker:", err)
		}
		user := &models.User{Username: "bench-" + uuid.NewString()}
		if err := database.Conn.Create(user).Error; err != nil {
			log.Fatal("Failed to seed user:", err)
		}
		speakers[i] = seeded{speakerID: speaker.ID, userID: user.ID, battery: 100}
	}
	fmt.Printf("seeded %v speakers\n", maxSpeakers)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = energyGrpc.NewTelemetryServiceClient(conn)

	fmt.Printf("gRPC client ready\n")

	var startTime time.Time
	var usedTime time.Duration

	sessionIDs := make([]uint, maxSpeakers)

	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxSpeakers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessionIDs[i] = startSession(speakers[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"started %v sessions: used time=%v seconds, throughput=%v action/second\n",
		maxSpeakers, usedTime.Seconds(), float64(maxSpeakers)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxSpeakers {
		if sessionIDs[i] == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSession(sessionIDs[i], &speakers[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	actions := maxSpeakers * (samplesPerSession + 1)
	fmt.Printf(
		"\n\rstreamed and ended %v sessions: used time=%v seconds, throughput=%v action/second, failures=%v\n",
		maxSpeakers, usedTime.Seconds(), float64(actions)/usedTime.Seconds(), failures.Load(),
	)
}

func flipCoin() bool {
	rndLock.Lock()
	defer rndLock.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndLock.Lock()
	val := min + rnd.Float64()*(max-min)
	rndLock.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func postJSON(path string, payload any, out any) error {
	jsonData, _ := json.Marshal(payload)
	resp, err := http.Post(fmt.Sprintf("http://%s%s", httpHostPort, path), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %v for %s", resp.StatusCode, path)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func reportError(err error) {
	failures.Add(1)
	fmt.Printf("\nerror: %v\n", err)
}

func startSession(s seeded) uint {
	if flipCoin() {
		var body struct {
			Data struct {
				ID uint `json:"id"`
			} `json:"data"`
		}
		err := postJSON("/api/energy/start-session", map[string]any{
			"speakerId":                s.speakerID,
			"userId":                   s.userID,
			"initialBatteryPercentage": s.battery,
			"mode":                     "benchmark",
		}, &body)
		if err != nil {
			reportError(err)
			return 0
		}
		return body.Data.ID
	}

	battery := s.battery
	resp, err := grpcClient.StartSession(context.Background(), &energyGrpc.StartSessionRequest{
		SpeakerId:                int64(s.speakerID),
		UserId:                   int64(s.userID),
		InitialBatteryPercentage: &battery,
		Mode:                     "benchmark",
	})
	if err != nil {
		reportError(err)
		return 0
	}
	return resp.SessionId
}

func runSession(sessionID uint, s *seeded) {
	consumed := 0.0
	for index := range samplesPerSession {
		current := rndFloat64(80.0, 400.0, 2)
		voltage := rndFloat64(3.5, 4.2, 2)
		consumed += current / 360
		s.battery = math.Max(0, s.battery-rndFloat64(0.0, 1.0, 2))

		sample := &energyGrpc.TelemetryRequest{
			SessionId:               int64(sessionID),
			SpeakerId:               int64(s.speakerID),
			Timestamp:               float64(index * 10),
			CurrentMA:               current,
			VoltageV:                voltage,
			PowerMW:                 current * voltage,
			BatteryRemainingPercent: s.battery,
			TotalConsumedMAh:        consumed,
			SampleIndex:             int64(index),
		}

		if flipCoin() {
			// the REST body has the same json shape as the gRPC message
			if err := postJSON("/api/energy/monitor-data", sample, nil); err != nil {
				reportError(err)
			}
		} else {
			resp, err := grpcClient.PostTelemetry(context.Background(), sample)
			if err != nil {
				reportError(err)
			} else if !resp.Status.Success {
				fmt.Printf("\nresponse success = false: %v\n", resp)
			}
		}
		fmt.Printf("\rstreamed sample %v for session %v", index, sessionID)
		time.Sleep(time.Duration(rndFloat64(100, 1100, 0)) * time.Millisecond)
	}

	if flipCoin() {
		err := postJSON(fmt.Sprintf("/api/energy/end-session/%v", sessionID), map[string]any{
			"finalBatteryPercentage": s.battery,
		}, nil)
		if err != nil {
			reportError(err)
		}
		return
	}

	final := s.battery
	_, err := grpcClient.EndSession(context.Background(), &energyGrpc.EndSessionRequest{
		SessionId:              int64(sessionID),
		FinalBatteryPercentage: &final,
	})
	if err != nil {
		reportError(err)
	}
}
