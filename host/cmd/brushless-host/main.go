package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"brushless/host/mcu"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "Serial device path")
	oid    = flag.Uint("oid", 0, "Motor object ID")
)

// Default bench wiring: phase outputs on gpio4/6/8, gate enables on
// gpio5/7/9 (even phase pins keep the phases on separate PWM slices).
var (
	defaultPhasePins = [3]uint32{4, 6, 8}
	defaultGatePins  = [3]uint32{5, 7, 9}
)

func main() {
	flag.Parse()

	fmt.Println("brushless-host - BLDC controller console")
	fmt.Println("========================================")

	mcuConn := mcu.NewMCU()

	fmt.Printf("Connecting to controller on %s...\n", *device)
	if err := mcuConn.Connect(*device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connected. Type 'help' for commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	motorOID := uint8(*oid)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		var err error

		switch cmd {
		case "quit", "exit", "q":
			return

		case "help", "?":
			printHelp()

		case "dict":
			mcuConn.PrintDictionary()

		case "config":
			// config [complementary] [geometric] [manual]
			var complementary, geometric, manual bool
			for _, opt := range parts[1:] {
				switch opt {
				case "complementary":
					complementary = true
				case "geometric":
					geometric = true
				case "manual":
					manual = true
				default:
					fmt.Printf("unknown option: %s\n", opt)
				}
			}
			err = mcuConn.ConfigMotor(motorOID, defaultPhasePins, defaultGatePins, 0, complementary, geometric, manual)

		case "spin", "faster":
			err = mcuConn.SpeedIncrease(motorOID)

		case "slower":
			err = mcuConn.SpeedDecrease(motorOID)

		case "stop":
			err = mcuConn.Stop(motorOID)

		case "duty":
			if len(parts) < 2 {
				fmt.Println("usage: duty <value>")
				continue
			}
			var duty uint64
			duty, err = strconv.ParseUint(parts[1], 10, 32)
			if err != nil {
				fmt.Printf("bad duty value: %v\n", err)
				continue
			}
			err = mcuConn.SetDuty(motorOID, uint32(duty))

		case "state":
			var status *mcu.MotorStatus
			status, err = mcuConn.QueryStatus(motorOID)
			if err == nil {
				fmt.Printf("motor %d: %s sector=%d period=%d duty=%d\n",
					status.OID, mcu.StateName(status.State), status.Sector, status.Period, status.Duty)
			}

		case "fault":
			// fault <pin> - watch an nFAULT line (active low, pulled up)
			if len(parts) < 2 {
				fmt.Println("usage: fault <pin>")
				continue
			}
			var pin uint64
			pin, err = strconv.ParseUint(parts[1], 10, 32)
			if err != nil {
				fmt.Printf("bad pin: %v\n", err)
				continue
			}
			err = mcuConn.ConfigFaultMonitor(motorOID, uint32(pin), true, false)
			if err == nil {
				// 1ms confirmation samples, 10ms scan interval at the
				// 12MHz timer rate.
				err = mcuConn.ArmFaultMonitor(motorOID, 0, 12000, 4, 120000)
			}

		case "estop":
			err = mcuConn.SendCommand("emergency_stop", nil)

		case "uptime":
			err = mcuConn.SendCommand("get_uptime", nil)

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  config [complementary] [geometric] [manual]")
	fmt.Println("                 - Create the motor with the default bench wiring")
	fmt.Println("  spin           - Start the motor (open-loop ramp)")
	fmt.Println("  faster         - Shorten the commutation period one notch")
	fmt.Println("  slower         - Lengthen the commutation period one notch")
	fmt.Println("  duty <value>   - Set the manual PWM duty target")
	fmt.Println("  stop           - Stop the motor")
	fmt.Println("  state          - Query motor state")
	fmt.Println("  fault <pin>    - Arm a fault monitor on an nFAULT input")
	fmt.Println("  estop          - Emergency stop: drop every output")
	fmt.Println("  uptime         - Get controller uptime")
	fmt.Println("  dict           - Print dictionary summary")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}
