package parking

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	menuEntering = 1
	menuExiting  = 2
	menuShutdown = 3
)

type Shell struct {
	sessions  SessionManager
	input     InputSource
	out       io.Writer
	telemetry *TelemetryProvider
}

func NewShell(sessions SessionManager, input InputSource, out io.Writer, telemetry *TelemetryProvider) *Shell {
	return &Shell{
		sessions:  sessions,
		input:     input,
		out:       out,
		telemetry: telemetry,
	}
}

// Run loops over the menu until shutdown is selected, input ends or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	fmt.Fprintln(s.out, "Welcome to Parking System!")

	for ctx.Err() == nil {
		s.printMenu()

		selection, err := s.input.ReadSelection()
		if errors.Is(err, ErrInputClosed) {
			break
		}
		if err != nil {
			fmt.Fprintln(s.out, "Unsupported option. Please enter a number corresponding to the provided menu")
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.Int("command.selection", selection)))
		done := s.processCommand(cmdCtx, selection)
		cmdSpan.End()

		if done {
			break
		}
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out, "Please select an option. Simply enter the number to choose an action")
	fmt.Fprintln(s.out, "1 New Vehicle Entering - Allocate Parking Space")
	fmt.Fprintln(s.out, "2 Vehicle Exiting - Generate Ticket Price")
	fmt.Fprintln(s.out, "3 Shutdown System")
}

func (s *Shell) processCommand(ctx context.Context, selection int) bool {
	switch selection {
	case menuEntering:
		s.handleEntering(ctx)
	case menuExiting:
		s.handleExiting(ctx)
	case menuShutdown:
		fmt.Fprintln(s.out, "Exiting from the system!")
		return true
	default:
		trace.SpanFromContext(ctx).AddEvent("unknown_command")
		fmt.Fprintln(s.out, "Unsupported option. Please enter a number corresponding to the provided menu")
	}
	return false
}

func (s *Shell) handleEntering(ctx context.Context) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.entering_command")
	defer span.End()

	fmt.Fprintln(s.out, "Please select vehicle type from menu")
	fmt.Fprintln(s.out, "1 CAR")
	fmt.Fprintln(s.out, "2 BIKE")
	selection, err := s.input.ReadSelection()
	if err != nil {
		span.AddEvent("invalid_vehicle_type")
		fmt.Fprintln(s.out, "Incorrect input provided")
		return
	}
	category, err := CategoryFromSelection(selection)
	if err != nil {
		span.AddEvent("invalid_vehicle_type")
		fmt.Fprintln(s.out, "Incorrect input provided")
		return
	}

	registration, err := s.readRegistration()
	if err != nil {
		span.AddEvent("invalid_registration")
		fmt.Fprintln(s.out, "Invalid vehicle registration number")
		return
	}

	span.SetAttributes(
		attribute.String("vehicle.category", category.String()),
		attribute.String("vehicle.registration", registration),
	)

	if _, err := s.sessions.BeginSession(ctx, category, registration); err != nil {
		span.AddEvent("entry_failed")
		if errors.Is(err, ErrLotFull) {
			fmt.Fprintf(s.out, "Sorry, no %s spot is available at the moment\n", category)
			return
		}
		if errors.Is(err, ErrVehicleAlreadyParked) {
			fmt.Fprintf(s.out, "Vehicle %s is already parked\n", registration)
			return
		}
		fmt.Fprintf(s.out, "Unable to process incoming vehicle: %s\n", err)
	}
}

func (s *Shell) handleExiting(ctx context.Context) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.exiting_command")
	defer span.End()

	registration, err := s.readRegistration()
	if err != nil {
		span.AddEvent("invalid_registration")
		fmt.Fprintln(s.out, "Invalid vehicle registration number")
		return
	}
	span.SetAttributes(attribute.String("vehicle.registration", registration))

	if _, err := s.sessions.EndSession(ctx, registration); err != nil {
		span.AddEvent("exit_failed")
		if errors.Is(err, ErrNoOpenTicket) {
			fmt.Fprintf(s.out, "No vehicle with registration %s is currently parked\n", registration)
			return
		}
		fmt.Fprintf(s.out, "Unable to process exiting vehicle: %s\n", err)
	}
}

func (s *Shell) readRegistration() (string, error) {
	fmt.Fprintln(s.out, "Please type the vehicle registration number and press enter key")
	return s.input.ReadRegistration()
}
