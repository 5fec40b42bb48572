package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации ("debug", "INFO", ...).
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

// Options задаёт параметры для новых логгеров.
type Options struct {
	Dir          string   // Каталог для файлов логов; пусто = без файла
	MaxSizeMB    int      // Размер файла до ротации
	MaxBackups   int      // Сколько старых файлов хранить
	ConsoleLevel LogLevel // Минимальный уровень для консоли
	FileLevel    LogLevel // Минимальный уровень для файла
}

// DefaultOptions возвращает параметры по умолчанию.
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		MaxSizeMB:    50,
		MaxBackups:   5,
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
	}
}

var (
	optionsMu sync.RWMutex
	options   = DefaultOptions()
)

// Configure меняет параметры для логгеров, созданных после вызова.
func Configure(opts Options) {
	optionsMu.Lock()
	options = opts
	optionsMu.Unlock()
}

func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

// Logger представляет логгер одного компонента
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            io.WriteCloser
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// NewLogger создаёт логгер компонента с ротацией файла <dir>/<component>.log
func NewLogger(component string) (*Logger, error) {
	opts := currentOptions()

	logger := &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if opts.Dir == "" {
		return logger, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, component+".log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	logger.file = file
	logger.fileLogger = log.New(file, "", log.LstdFlags)

	return logger, nil
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Глобальный логгер процесса. До InitDefaultLogger вызовы ничего не делают.
var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// InitDefaultLogger инициализирует глобальный логгер
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}

	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLogger != nil {
		defaultLogger.Close()
		defaultLogger = nil
	}
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}

// LogDecodeError логирует ошибку разбора входных данных с дампом начала
func LogDecodeError(source string, err error, data []byte) {
	Error("Decode error from %s: %v", source, err)
	if len(data) > 0 {
		Debug("Raw data (%d bytes):\n%s", len(data), HexDump(data))
	}
}
