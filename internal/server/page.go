package server

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Cache Storage stress test</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
#output { background: #111; color: #ddd; padding: 1rem; min-height: 20rem; white-space: pre-wrap; font-family: monospace; }
</style>
</head>
<body>
<h1>Cache Storage stress test</h1>
<button id="run">Run stress test</button>
<pre id="output"></pre>
<script>
const output = document.getElementById("output");
const button = document.getElementById("run");

function append(lines) {
  for (const line of lines) {
    output.textContent += line + "\n";
  }
}

async function poll(id, from) {
  const res = await fetch("/runs/" + id + "/log?from=" + from);
  if (!res.ok) {
    append(["poll failed: " + res.status]);
    return;
  }
  const body = await res.json();
  append(body.lines);
  if (!body.done) {
    setTimeout(() => poll(id, body.next), 500);
  }
}

button.addEventListener("click", async () => {
  const res = await fetch("/runs", { method: "POST" });
  if (!res.ok) {
    append(["start failed: " + res.status]);
    return;
  }
  const run = await res.json();
  poll(run.id, 0);
});
</script>
</body>
</html>
`
