package timezone

const styles = `
.time-panel { z-index: 1001; }
.time-zone-buttons { display: flex; gap: 5px; flex-wrap: wrap; margin-bottom: 10px; }
.time-zone-btn { padding: 5px 10px; border: 1px solid #dee2e6; border-radius: 4px; background: #f8f9fa; color: #333; text-decoration: none; }
.time-zone-btn.active { background: #007bff; color: white; border-color: #0056b3; }
.game-time { transition: background-color 0.3s; }
.game-time-warning { color: #dc3545; font-weight: bold; }
.countdown-timer { font-size: 0.9em; color: #6c757d; margin-top: 5px; }
`

// tickScript keeps the clock and countdowns current after the page is served.
const tickScript = `
(function () {
  var clock = document.getElementById('current-time-display');
  var offset = clock ? parseInt(clock.dataset.psmClock, 10) - Date.now() : 0;
  function tick() {
    var now = Date.now();
    if (clock) {
      var opts = { hour: 'numeric', minute: '2-digit', second: '2-digit' };
      if (clock.dataset.psmZone) opts.timeZone = clock.dataset.psmZone;
      var label = clock.textContent.split(' ').pop();
      clock.textContent = 'Current Time: ' + new Date(now + offset).toLocaleTimeString('en-US', opts) + ' ' + label;
    }
    document.querySelectorAll('.countdown-timer[data-psm-deadline]').forEach(function (el) {
      var left = parseInt(el.dataset.psmDeadline, 10) - now;
      if (left < 0) {
        el.innerHTML = '<div class="game-time-warning">Game has started</div>';
        el.removeAttribute('data-psm-deadline');
        return;
      }
      var h = Math.floor(left / 3600000), m = Math.floor(left % 3600000 / 60000), s = Math.floor(left % 60000 / 1000);
      el.textContent = 'Time until game: ' + h + 'h ' + m + 'm ' + s + 's';
    });
  }
  setInterval(tick, 1000);
})();
`
