package judge

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	LanguagePython     = "python"
	LanguageJavaScript = "javascript"
)

// NormalizeLanguage maps client language aliases onto supported languages
func NormalizeLanguage(language string) string {
	switch language {
	case "js", "node", "nodejs", LanguageJavaScript:
		return LanguageJavaScript
	case "", "py", "python3", LanguagePython:
		return LanguagePython
	}
	return language
}

// SolutionFileName returns the sandbox file name for submitted code
func SolutionFileName(language string) string {
	if language == LanguageJavaScript {
		return "solution.js"
	}
	return "solution.py"
}

type harnessParams struct {
	TimeLimitSec  int
	MemoryLimitMB int
}

var (
	pythonTemplate     = template.Must(template.New("python").Parse(pythonHarness))
	javascriptTemplate = template.Must(template.New("javascript").Parse(javascriptHarness))
)

// RenderHarness produces the wrapper script for a language with limits applied.
// The harness reads {"function_name", "cases"} JSON on stdin, loads the solution
// file next to itself, and emits one JSON result line per case.
func RenderHarness(language string, timeLimitSec, memoryLimitMB int) (string, error) {
	params := harnessParams{TimeLimitSec: timeLimitSec, MemoryLimitMB: memoryLimitMB}

	var tmpl *template.Template
	switch language {
	case LanguagePython:
		tmpl = pythonTemplate
	case LanguageJavaScript:
		tmpl = javascriptTemplate
	default:
		return "", fmt.Errorf("unsupported language: %s", language)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to render %s harness: %w", language, err)
	}

	return buf.String(), nil
}

const pythonHarness = `import ast
import inspect
import io
import json
import math
import os
import signal
import sys
import time

TIME_LIMIT_SEC = {{.TimeLimitSec}}
MEMORY_LIMIT_MB = {{.MemoryLimitMB}}

REAL_STDOUT = sys.stdout
SOLUTION_PATH = os.path.join(os.path.dirname(os.path.abspath(__file__)), "solution.py")

try:
    import resource
    _limit = MEMORY_LIMIT_MB * 1024 * 1024
    resource.setrlimit(resource.RLIMIT_AS, (_limit, _limit))
except Exception:
    pass


def emit(obj):
    REAL_STDOUT.write(json.dumps(obj) + "\n")
    REAL_STDOUT.flush()


class CaseTimeout(Exception):
    pass


def on_alarm(signum, frame):
    raise CaseTimeout()


def coerce(value):
    if not isinstance(value, str):
        return value
    text = value.strip()
    if not text or text[0] not in "[{-0123456789tfn\"":
        return value
    try:
        return json.loads(text)
    except (ValueError, TypeError):
        return value


def arity_of(fn):
    try:
        sig = inspect.signature(fn)
    except (TypeError, ValueError):
        return 1
    count = 0
    for param in sig.parameters.values():
        if param.kind in (param.POSITIONAL_ONLY, param.POSITIONAL_OR_KEYWORD):
            count += 1
    return count


def find_entry(source, namespace, preferred):
    tree = ast.parse(source)
    for node in tree.body:
        if isinstance(node, ast.ClassDef) and node.name == "Solution":
            for item in node.body:
                if isinstance(item, ast.FunctionDef) and not item.name.startswith("_"):
                    instance = namespace["Solution"]()
                    return getattr(instance, item.name)
    if preferred and preferred in namespace and callable(namespace[preferred]):
        return namespace[preferred]
    for node in tree.body:
        if isinstance(node, ast.FunctionDef) and not node.name.startswith("_"):
            return namespace[node.name]
    return None


def call_entry(fn, raw_input):
    value = coerce(raw_input)
    if isinstance(value, list):
        n = arity_of(fn)
        if n == len(value) and n > 0:
            return fn(*value)
        if n == 1:
            return fn(value)
        return fn(*value)
    return fn(value)


def sanitize(value):
    if isinstance(value, bool) or value is None:
        return value
    if isinstance(value, (set, frozenset, tuple)):
        return [sanitize(v) for v in value]
    if isinstance(value, list):
        return [sanitize(v) for v in value]
    if isinstance(value, dict):
        return {str(k): sanitize(v) for k, v in value.items()}
    if isinstance(value, float) and (math.isnan(value) or math.isinf(value)):
        return repr(value)
    if isinstance(value, (str, int, float)):
        return value
    return repr(value)


def main():
    payload = json.load(sys.stdin)
    preferred = payload.get("function_name") or None
    cases = payload.get("cases", [])

    try:
        with open(SOLUTION_PATH, "r") as handle:
            source = handle.read()
    except OSError as exc:
        emit({"fatal": str(exc), "category": "system"})
        return

    sys.stdout = io.StringIO()

    namespace = {}
    try:
        code = compile(source, "solution.py", "exec")
        exec(code, namespace)
    except SyntaxError as exc:
        emit({"fatal": "SyntaxError: " + str(exc), "category": "compile"})
        return
    except Exception as exc:
        emit({"fatal": type(exc).__name__ + ": " + str(exc), "category": "runtime"})
        return

    try:
        entry = find_entry(source, namespace, preferred)
    except Exception as exc:
        emit({"fatal": type(exc).__name__ + ": " + str(exc), "category": "runtime"})
        return
    if entry is None:
        emit({"fatal": "no callable solution found", "category": "compile"})
        return

    signal.signal(signal.SIGALRM, on_alarm)

    for index, case in enumerate(cases):
        started = time.monotonic()
        try:
            signal.alarm(TIME_LIMIT_SEC)
            actual = call_entry(entry, case.get("input"))
            signal.alarm(0)
            elapsed = int((time.monotonic() - started) * 1000)
            emit({"i": index, "ok": True, "actual": sanitize(actual), "time_ms": elapsed})
        except CaseTimeout:
            elapsed = int((time.monotonic() - started) * 1000)
            emit({"i": index, "ok": False, "error": "time limit exceeded", "category": "timeout", "time_ms": elapsed})
            break
        except MemoryError:
            signal.alarm(0)
            emit({"i": index, "ok": False, "error": "memory limit exceeded", "category": "memory", "time_ms": 0})
        except Exception as exc:
            signal.alarm(0)
            elapsed = int((time.monotonic() - started) * 1000)
            emit({"i": index, "ok": False, "error": type(exc).__name__ + ": " + str(exc), "category": "runtime", "time_ms": elapsed})

    emit({"done": True})


main()
`

const javascriptHarness = `'use strict';

const fs = require('fs');
const path = require('path');
const vm = require('vm');

const TIME_LIMIT_SEC = {{.TimeLimitSec}};

function emit(obj) {
  process.stdout.write(JSON.stringify(obj) + '\n');
}

function coerce(value) {
  if (typeof value !== 'string') return value;
  const text = value.trim();
  if (!text) return value;
  if (!'[{-0123456789tfn"'.includes(text[0])) return value;
  try {
    return JSON.parse(text);
  } catch (err) {
    return value;
  }
}

function findEntry(sandbox, preferred) {
  if (typeof sandbox.Solution === 'function') {
    const instance = new sandbox.Solution();
    const proto = Object.getPrototypeOf(instance);
    const names = Object.getOwnPropertyNames(proto).filter(function (name) {
      return name !== 'constructor' && name[0] !== '_' && typeof proto[name] === 'function';
    });
    if (names.length > 0) {
      return proto[names[0]].bind(instance);
    }
  }
  if (preferred && typeof sandbox[preferred] === 'function') {
    return sandbox[preferred];
  }
  const keys = Object.keys(sandbox);
  for (let i = 0; i < keys.length; i++) {
    const key = keys[i];
    if (key === 'module' || key === 'exports' || key === 'console' || key === 'Solution') continue;
    if (typeof sandbox[key] === 'function' && key[0] !== '_') {
      return sandbox[key];
    }
  }
  if (typeof sandbox.module.exports === 'function') {
    return sandbox.module.exports;
  }
  if (preferred && sandbox.module.exports && typeof sandbox.module.exports[preferred] === 'function') {
    return sandbox.module.exports[preferred];
  }
  return null;
}

function callEntry(fn, rawInput) {
  const value = coerce(rawInput);
  if (Array.isArray(value)) {
    const n = fn.length;
    if (n === value.length && n > 0) return fn.apply(null, value);
    if (n === 1) return fn(value);
    return fn.apply(null, value);
  }
  return fn(value);
}

function sanitize(value) {
  if (value === undefined) return null;
  if (value instanceof Set) return Array.from(value).map(sanitize);
  if (value instanceof Map) {
    const out = {};
    value.forEach(function (v, k) { out[String(k)] = sanitize(v); });
    return out;
  }
  if (Array.isArray(value)) return value.map(sanitize);
  if (typeof value === 'number' && !isFinite(value)) return String(value);
  if (typeof value === 'function' || typeof value === 'symbol' || typeof value === 'bigint') return String(value);
  if (value !== null && typeof value === 'object') {
    const out = {};
    Object.keys(value).forEach(function (key) { out[key] = sanitize(value[key]); });
    return out;
  }
  return value;
}

function main() {
  const payload = JSON.parse(fs.readFileSync(0, 'utf8'));
  const preferred = payload.function_name || null;
  const cases = payload.cases || [];

  let source;
  try {
    source = fs.readFileSync(path.join(__dirname, 'solution.js'), 'utf8');
  } catch (err) {
    emit({ fatal: String(err), category: 'system' });
    return;
  }

  const sandbox = {
    module: { exports: {} },
    exports: {},
    console: { log: function () {}, error: function () {}, warn: function () {} },
    Math: Math,
    JSON: JSON,
  };
  vm.createContext(sandbox);

  try {
    vm.runInContext(source, sandbox, { filename: 'solution.js', timeout: TIME_LIMIT_SEC * 1000 });
  } catch (err) {
    if (err instanceof SyntaxError) {
      emit({ fatal: 'SyntaxError: ' + err.message, category: 'compile' });
    } else {
      emit({ fatal: String(err), category: 'runtime' });
    }
    return;
  }

  const entry = findEntry(sandbox, preferred);
  if (!entry) {
    emit({ fatal: 'no callable solution found', category: 'compile' });
    return;
  }

  for (let i = 0; i < cases.length; i++) {
    const started = Date.now();
    try {
      const actual = callEntry(entry, cases[i].input);
      emit({ i: i, ok: true, actual: sanitize(actual), time_ms: Date.now() - started });
    } catch (err) {
      emit({ i: i, ok: false, error: String(err), category: 'runtime', time_ms: Date.now() - started });
    }
  }

  emit({ done: true });
}

main();
`
