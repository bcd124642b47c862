// Package interactive provides the prompts behind the pageprobe terminal menu.
package interactive

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// MenuOption represents a menu item with its associated action
type MenuOption struct {
	Name        string
	Description string
	Action      func() error
}

const exitChoice = "Exit"

var (
	// ErrExit is returned when the user chooses to exit
	ErrExit = errors.New("exit")
	// ErrInvalidSelection is returned when an invalid menu option is selected
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNoOptions is returned when a list prompt has nothing to choose from
	ErrNoOptions = errors.New("no options to choose from")
)

// ShowMainMenu displays the main menu and handles user selection
func ShowMainMenu(options []MenuOption) error {
	choices, optionMap := menuChoices(options)

	var selected string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: choices,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return ErrExit
	}

	return dispatch(selected, optionMap)
}

func menuChoices(options []MenuOption) ([]string, map[string]MenuOption) {
	choices := make([]string, 0, len(options)+1)
	optionMap := make(map[string]MenuOption, len(options))

	for _, opt := range options {
		choice := fmt.Sprintf("%s - %s", opt.Name, opt.Description)
		choices = append(choices, choice)
		optionMap[choice] = opt
	}

	return append(choices, exitChoice), optionMap
}

func dispatch(selected string, optionMap map[string]MenuOption) error {
	if selected == exitChoice {
		return ErrExit
	}

	option, ok := optionMap[selected]
	if !ok || option.Action == nil {
		return ErrInvalidSelection
	}

	return option.Action()
}

// SelectFromList asks the user to pick one of options.
func SelectFromList(message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", fmt.Errorf("selection aborted: %w", err)
	}

	return selected, nil
}

// Input reads a line of text. validate may be nil.
func Input(message, defaultValue string, validate func(string) error) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(stringValidator(validate)))
	}

	if err := survey.AskOne(prompt, &value, opts...); err != nil {
		return "", fmt.Errorf("input aborted: %w", err)
	}

	return value, nil
}

func stringValidator(validate func(string) error) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok {
			return fmt.Errorf("unexpected answer type %T", ans)
		}
		return validate(s)
	}
}

// PauseForEnter waits for the user to press Enter
func PauseForEnter() {
	fmt.Println("\nPress Enter to continue...")
	_, _ = fmt.Scanln()
}

// Confirm asks for user confirmation
func Confirm(message string) bool {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	_ = survey.AskOne(prompt, &confirmed)
	return confirmed
}
